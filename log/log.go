// Package log provides the module-scoped contextual logger shared by every
// package in this repository. It wraps log15, mirroring the
// log.NewModuleLogger(log.StorageDatabase)-style module loggers and the
// logger.NewWith("state", c.state) contextual-child idiom used throughout
// the consensus and storage packages this repo is descended from.
package log

import (
	"os"

	"github.com/inconshreveable/log15"
)

// Module names. New packages should add a constant here rather than
// stringly-typed module tags scattered through the codebase.
const (
	ModuleBaseNode = "basenode"
	ModuleMempool  = "mempool"
	ModuleDAN      = "dan"
	ModuleStorage  = "storage"
	ModuleConfig   = "config"
	ModuleCmd      = "cmd"
)

var root = log15.New()

func init() {
	root.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StreamHandler(os.Stderr, log15.TerminalFormat())))
}

// SetVerbosity adjusts the root log level for all module loggers.
func SetVerbosity(lvl log15.Lvl) {
	root.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, log15.TerminalFormat())))
}

// NewModuleLogger returns a logger tagged with the given module name. Callers
// typically narrow it further with .New(ctx...) at construction time, e.g.
// logger.New("asset", assetID).
func NewModuleLogger(module string) log15.Logger {
	return root.New("module", module)
}
