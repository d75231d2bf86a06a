// Command godanode is the composition root for a DAN layer node: it loads
// configuration, starts logging and the metrics/status HTTP server, and
// constructs the mempool store and sync protocol. It does not construct the
// base-node synchronization FSM or any DAN consensus worker. Grounded on
// cmd/kcn/main.go's cli.App / app.Before lifecycle and metrics.ServeHTTP
// wiring, trimmed to this repository's three cores.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/urfave/cli"

	godanconfig "github.com/godanchain/node/config"
	golog "github.com/godanchain/node/log"
	"github.com/godanchain/node/mempool"
	"github.com/godanchain/node/metrics"
)

var logger = golog.NewModuleLogger(golog.ModuleCmd)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the state-DB and file-backed stores",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit 1=error 2=warn 3=info 4=debug",
		Value: int(log15.LvlInfo),
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "Listen address for the status and Prometheus metrics endpoint",
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "godanode"
	app.Usage = "DAN layer node: base-node sync, mempool sync, and per-asset consensus workers"
	app.Flags = []cli.Flag{configFileFlag, dataDirFlag, verbosityFlag, metricsAddrFlag}
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	golog.SetVerbosity(log15.Lvl(ctx.Int(verbosityFlag.Name)))

	cfg := godanconfig.DefaultConfig
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := godanconfig.Load(file, &cfg); err != nil {
			return fmt.Errorf("loading config %s: %w", file, err)
		}
	}
	if dir := ctx.String(dataDirFlag.Name); dir != "" {
		cfg.DataDir = dir
	}
	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		cfg.ListenAddr = addr
	}

	logger.Info("Starting godanode", "datadir", cfg.DataDir, "listenAddr", cfg.ListenAddr)

	metrics.ServeHTTP(cfg.ListenAddr, "godanode", nil)

	mempoolStore, err := mempool.NewStore(mempoolStoreCapacity, mempool.NewInMemoryReorgPool(mempoolReorgRetention))
	if err != nil {
		return fmt.Errorf("constructing mempool store: %w", err)
	}
	mempoolProtocol := mempool.NewMempoolSyncProtocol(cfg.Mempool, mempoolStore)
	logger.Info("Mempool sync protocol ready", "initialSyncPeers", cfg.Mempool.InitialSyncNumPeers)

	// The base-node synchronization FSM and the per-asset DAN consensus
	// workers both depend on collaborators this repository treats as
	// external (chain storage, peer transport, committee membership,
	// signing, checkpoint submission — spec.md §6). A deployment supplies
	// concrete implementations of those interfaces and constructs
	// basenode.New / dan.New itself. This composition root constructs the
	// mempool protocol but does not call its HandlePeerConnected or
	// HandleInboundSubstream (no transport is wired here), and starts the
	// ambient pieces (logging, metrics) that do not require them.

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down godanode")
	mempoolProtocol.Wait()
	return nil
}

const (
	mempoolStoreCapacity  = 50000
	mempoolReorgRetention = 10 * time.Minute
)
