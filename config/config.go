// Package config aggregates the per-core configuration of every component
// godanode wires together (base-node sync FSM, mempool sync protocol, DAN
// consensus workers) plus node-level settings, and loads/saves it as TOML
// the way gxp.Config / cmd/ranger's dumpconfig command does. Grounded on
// gxp/config.go's DefaultConfig-literal-with-struct-embedding pattern and
// cmd/ranger/config.go's toml.NewEncoder/toml.NewDecoder load/dump flow.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/alecthomas/units"
	"github.com/naoina/toml"
	"github.com/pbnjay/memory"

	"github.com/godanchain/node/basenode"
	"github.com/godanchain/node/dan"
	"github.com/godanchain/node/mempool"
)

// tomlSettings ensures TOML keys match Go struct field names exactly,
// matching cmd/ranger/config.go's dumpconfig settings.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Config is the top-level, on-disk configuration for a godanode process.
type Config struct {
	// DataDir is the root directory for the state-DB and any file-backed
	// stores (spec.md §2's per-asset state-DB/chain-DB placement).
	DataDir string

	// MySQLDSNFormat is the chain-DB connection string template, with a
	// single %s verb substituted with the asset's public key (dan's
	// FileDbFactory).
	MySQLDSNFormat string

	// StateDBCache bounds the badger-backed state-DB's in-memory block
	// cache. Accepts human units ("256MB") when loaded from TOML;
	// CacheBytes() resolves it against system memory if zero.
	StateDBCache units.Base2Bytes

	// ListenAddr is the metrics/status HTTP server address (metrics.ServeHTTP).
	ListenAddr string

	// Network holds the p2p listen/bootnode settings shared by the
	// base-node and mempool sync cores.
	Network NetworkConfig

	BaseNode basenode.Config
	Mempool  mempool.Config
	DAN      dan.Config
}

// NetworkConfig bounds the peer-to-peer listener every sync core shares.
type NetworkConfig struct {
	ListenPort     int
	BootstrapPeers []string
	MaxPeers       int
}

// DefaultConfig matches the constants each core names as its own default
// (basenode.DefaultConfig, dan.DefaultConfig), plus process-wide defaults
// sized off system memory the way cmd/utils/flags.go derives cache sizes
// from the host's available RAM.
var DefaultConfig = Config{
	DataDir:        defaultDataDir(),
	MySQLDSNFormat: "root@tcp(127.0.0.1:3306)/dan_%s?parseTime=true",
	StateDBCache:   0,
	ListenAddr:     ":9545",
	Network: NetworkConfig{
		ListenPort: 32323,
		MaxPeers:   50,
	},
	BaseNode: basenode.DefaultConfig,
	Mempool: mempool.Config{
		SessionConfig:       mempool.SessionConfig{InitialSyncMaxTransactions: 1000},
		InitialSyncNumPeers: 3,
	},
	DAN: dan.DefaultConfig,
}

func defaultDataDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		return "."
	}
	return home + "/.godanode"
}

// CacheBytes resolves StateDBCache to a byte count, defaulting to 1/16th
// of total system memory when unset (mirrors the teacher's
// memory.TotalMemory-scaled cache sizing for LevelDBCacheSizeFlag).
func (c Config) CacheBytes() int {
	if c.StateDBCache > 0 {
		return int(c.StateDBCache)
	}
	if total := memory.TotalMemory(); total > 0 {
		return int(total / 16)
	}
	return 128 * 1024 * 1024
}

// Load reads and decodes a TOML config file into cfg. Fields absent from
// the file keep the values cfg already holds, so a caller that starts from
// a copy of DefaultConfig keeps its defaults.
func Load(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return err
}

// Save writes cfg to path as TOML, for the dump-config workflow
// (cmd/ranger/config.go's dumpConfig command).
func Save(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return tomlSettings.NewEncoder(f).Encode(cfg)
}
