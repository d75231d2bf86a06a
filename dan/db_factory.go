package dan

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/godanchain/node/dan/models"
	"github.com/godanchain/node/dan/storage"
)

// FileDbFactory opens one MySQL-backed chain-DB and one badger-backed
// state-DB per asset, caching the open handles for the process lifetime
// (spec.md §2 "chain-DB, per asset" / "state-DB, per asset").
type FileDbFactory struct {
	mysqlDSNFormat string // e.g. "user:pass@tcp(host:3306)/dan_%s?parseTime=true"
	stateDBRoot    string
	cacheBytes     int

	mu     sync.Mutex
	chains map[models.PublicKey]*storage.ChainDB
	states map[models.PublicKey]*storage.StateDB
}

// NewFileDbFactory constructs a factory that derives each asset's MySQL
// schema name and state-DB directory from its public key.
func NewFileDbFactory(mysqlDSNFormat, stateDBRoot string, cacheBytes int) *FileDbFactory {
	return &FileDbFactory{
		mysqlDSNFormat: mysqlDSNFormat,
		stateDBRoot:    stateDBRoot,
		cacheBytes:     cacheBytes,
		chains:         make(map[models.PublicKey]*storage.ChainDB),
		states:         make(map[models.PublicKey]*storage.StateDB),
	}
}

func (f *FileDbFactory) GetOrCreateChainDB(asset models.AssetDefinition) (ChainStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if db, ok := f.chains[asset.PublicKey]; ok {
		return chainStoreAdapter{db}, nil
	}
	dsn := fmt.Sprintf(f.mysqlDSNFormat, asset.PublicKey)
	db, err := storage.OpenChainDB(dsn)
	if err != nil {
		return nil, err
	}
	f.chains[asset.PublicKey] = db
	return chainStoreAdapter{db}, nil
}

func (f *FileDbFactory) GetOrCreateStateDB(asset models.AssetDefinition) (StateStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if db, ok := f.states[asset.PublicKey]; ok {
		return stateStoreAdapter{db}, nil
	}
	dir := filepath.Join(f.stateDBRoot, string(asset.PublicKey))
	db, err := storage.OpenStateDB(dir, f.cacheBytes)
	if err != nil {
		return nil, err
	}
	f.states[asset.PublicKey] = db
	return stateStoreAdapter{db}, nil
}

// chainStoreAdapter narrows *storage.ChainDB's NewUnitOfWork return type
// to the ChainUnitOfWork interface so it satisfies ChainStore.
type chainStoreAdapter struct{ *storage.ChainDB }

func (a chainStoreAdapter) NewUnitOfWork() ChainUnitOfWork { return a.ChainDB.NewUnitOfWork() }

// stateStoreAdapter narrows *storage.StateDB's NewUnitOfWork return type
// to the StateUnitOfWork interface so it satisfies StateStore.
type stateStoreAdapter struct{ *storage.StateDB }

func (a stateStoreAdapter) NewUnitOfWork(viewID uint64) StateUnitOfWork {
	return a.StateDB.NewUnitOfWork(viewID)
}
