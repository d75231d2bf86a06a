// Package storage implements the DAN consensus worker's two persistence
// layers: a relational chain-DB (nodes/instructions/QC singletons/
// metadata, spec.md §6) and a per-asset key-value state-DB with a
// merkle-style root (spec.md §3/§6). Grounded on
// dan_layer/storage_sqlite/src/sqlite_chain_backend_adapter.rs, translated
// from diesel/SQLite to gorm/MySQL per the teacher's go.mod
// (jinzhu/gorm + go-sql-driver/mysql).
package storage

import (
	_ "github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/godanchain/node/dan/models"
	golog "github.com/godanchain/node/log"
)

var logger = golog.NewModuleLogger(golog.ModuleDAN)

// dbNode is the `nodes` table row (spec.md §6).
type dbNode struct {
	ID          uint   `gorm:"primary_key"`
	Hash        []byte `gorm:"unique_index;not null"`
	Parent      []byte `gorm:"index"`
	Height      uint64
	IsCommitted bool
}

func (dbNode) TableName() string { return "nodes" }

// dbInstruction is the `instructions` table row (spec.md §6), deleted
// together with its parent node row by DeleteNode.
type dbInstruction struct {
	ID         uint   `gorm:"primary_key"`
	Hash       []byte `gorm:"unique_index;not null"`
	NodeID     uint   `gorm:"index;not null"`
	TemplateID uint32
	Method     string
	Args       []byte
	Sender     string
}

func (dbInstruction) TableName() string { return "instructions" }

// dbQC backs both the `locked_qc` and `prepare_qc` singleton tables
// (spec.md §6): "(id=1, message_type, view_number, node_hash, signature?)".
type dbQC struct {
	ID          uint `gorm:"primary_key"`
	MessageType int
	ViewNumber  uint64
	NodeHash    []byte
	Signature   []byte
}

func (dbQC) lockedTableName() string  { return "locked_qc" }
func (dbQC) prepareTableName() string { return "prepare_qc" }

// dbMetadata backs the `metadata` table: (key bytes -> value bytes).
type dbMetadata struct {
	Key   []byte `gorm:"primary_key"`
	Value []byte
}

func (dbMetadata) TableName() string { return "metadata" }

// ChainDB is the per-asset relational store. One instance is opened per
// asset database (spec.md §6 "chain-DB, per asset").
type ChainDB struct {
	db *gorm.DB
}

// OpenChainDB opens (and, if necessary, migrates) a MySQL-backed chain-DB
// at dsn.
func OpenChainDB(dsn string) (*ChainDB, error) {
	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open chain-db")
	}
	if err := db.AutoMigrate(&dbNode{}, &dbInstruction{}, &dbMetadata{}).Error; err != nil {
		return nil, errors.Wrap(err, "failed to migrate chain-db")
	}
	if !db.HasTable("locked_qc") {
		db.Table("locked_qc").CreateTable(&dbQC{})
	}
	if !db.HasTable("prepare_qc") {
		db.Table("prepare_qc").CreateTable(&dbQC{})
	}
	return &ChainDB{db: db}, nil
}

// Close releases the underlying connection.
func (c *ChainDB) Close() error {
	return c.db.Close()
}

// GetTipNode returns the highest-height node, or ok=false if the chain-DB
// is empty (spec.md's "current_view_id" derivation via the tip node).
func (c *ChainDB) GetTipNode() (models.Node, bool, error) {
	var row dbNode
	err := c.db.Order("height desc").First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return models.Node{}, false, nil
	}
	if err != nil {
		return models.Node{}, false, errors.Wrap(err, "failed to read tip node")
	}
	return toModelNode(row), true, nil
}

// GetNode looks up a node by hash.
func (c *ChainDB) GetNode(hash models.NodeHash) (models.Node, bool, error) {
	var row dbNode
	err := c.db.Where("hash = ?", hash[:]).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return models.Node{}, false, nil
	}
	if err != nil {
		return models.Node{}, false, errors.Wrap(err, "failed to read node")
	}
	return toModelNode(row), true, nil
}

// GetLockedQC returns the persisted locked-QC singleton, the empty QC if
// none has been persisted yet.
func (c *ChainDB) GetLockedQC() (models.QuorumCertificate, error) {
	return c.getSingletonQC("locked_qc")
}

// GetPrepareQC returns the persisted prepare-QC singleton.
func (c *ChainDB) GetPrepareQC() (models.QuorumCertificate, error) {
	return c.getSingletonQC("prepare_qc")
}

func (c *ChainDB) getSingletonQC(table string) (models.QuorumCertificate, error) {
	var row dbQC
	err := c.db.Table(table).Where("id = ?", 1).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return models.QuorumCertificate{}, nil
	}
	if err != nil {
		return models.QuorumCertificate{}, errors.Wrapf(err, "failed to read %s", table)
	}
	var hash models.NodeHash
	copy(hash[:], row.NodeHash)
	return models.QuorumCertificate{
		MessageType: models.MessageType(row.MessageType),
		ViewID:      models.ViewID(row.ViewNumber),
		NodeHash:    hash,
	}, nil
}

func toModelNode(row dbNode) models.Node {
	var hash, parent models.NodeHash
	copy(hash[:], row.Hash)
	copy(parent[:], row.Parent)
	return models.Node{Hash: hash, ParentHash: parent, Height: row.Height, IsCommitted: row.IsCommitted}
}

// ChainDbUnitOfWork is the scoped mutation buffer for one phase's chain-DB
// writes (spec.md §3 "Ownership", §9 "Shared-then-owned state-DB
// unit-of-work" — the same shape applies to the chain-DB, with a shorter
// lifetime that "never spans a phase boundary" per spec.md §4.3
// invariants).
type ChainDbUnitOfWork struct {
	db         *gorm.DB
	tx         *gorm.DB
	newNodes   []dbNode
	newInstrs  []dbInstruction
	lockedQC   *models.QuorumCertificate
	prepareQC  *models.QuorumCertificate
	commitHash *models.NodeHash
}

// NewUnitOfWork opens a buffered mutation scope. No writes reach the
// database until Commit.
func (c *ChainDB) NewUnitOfWork() *ChainDbUnitOfWork {
	return &ChainDbUnitOfWork{db: c.db}
}

// AddNode stages a new node and, together, its instructions (spec.md §3
// "Instruction" lifecycle: "inserted together with its node in a single
// chain-DB unit-of-work").
func (u *ChainDbUnitOfWork) AddNode(node models.Node, instructions []models.Instruction) {
	u.newNodes = append(u.newNodes, dbNode{
		Hash:        node.Hash[:],
		Parent:      node.ParentHash[:],
		Height:      node.Height,
		IsCommitted: node.IsCommitted,
	})
	for _, instr := range instructions {
		u.newInstrs = append(u.newInstrs, dbInstruction{
			Hash:       instr.Hash[:],
			NodeID:     0, // resolved to the node's row id at commit time
			TemplateID: instr.TemplateID,
			Method:     instr.Method,
			Args:       instr.Args,
			Sender:     string(instr.Sender),
		})
	}
}

// SetLockedQC stages the new locked-QC singleton row.
func (u *ChainDbUnitOfWork) SetLockedQC(qc models.QuorumCertificate) { u.lockedQC = &qc }

// SetPrepareQC stages the new prepare-QC singleton row.
func (u *ChainDbUnitOfWork) SetPrepareQC(qc models.QuorumCertificate) { u.prepareQC = &qc }

// MarkCommitted stages the is_committed flag flip for the node at hash
// (spec.md §3: "once committed, the flag never clears" — Commit never
// unsets an existing true value, it is only ever staged once per Decide).
func (u *ChainDbUnitOfWork) MarkCommitted(hash models.NodeHash) { u.commitHash = &hash }

// Commit applies every staged write atomically; commit is the
// linearization point (spec.md §5 "every write goes through a unit-of-work
// whose commit is the linearization point").
func (u *ChainDbUnitOfWork) Commit() error {
	return u.db.Transaction(func(tx *gorm.DB) error {
		for _, n := range u.newNodes {
			if err := tx.Create(&n).Error; err != nil {
				return errors.Wrap(err, "failed to insert node")
			}
			for i := range u.newInstrs {
				u.newInstrs[i].NodeID = n.ID
			}
		}
		for _, instr := range u.newInstrs {
			if err := tx.Create(&instr).Error; err != nil {
				return errors.Wrap(err, "failed to insert instruction")
			}
		}
		if u.lockedQC != nil {
			if err := upsertSingletonQC(tx, "locked_qc", *u.lockedQC); err != nil {
				return err
			}
		}
		if u.prepareQC != nil {
			if err := upsertSingletonQC(tx, "prepare_qc", *u.prepareQC); err != nil {
				return err
			}
		}
		if u.commitHash != nil {
			if err := tx.Table("nodes").Where("hash = ?", (*u.commitHash)[:]).
				Update("is_committed", true).Error; err != nil {
				return errors.Wrap(err, "failed to mark node committed")
			}
		}
		return nil
	})
}

// Discard drops every staged write without touching the database — the
// unit-of-work's drop-cascades-abort semantics (spec.md §9 "Shared-then-
// owned state-DB unit-of-work": "any early transition... drops it, which
// must cascade-abort all buffered writes").
func (u *ChainDbUnitOfWork) Discard() {
	u.newNodes = nil
	u.newInstrs = nil
	u.lockedQC = nil
	u.prepareQC = nil
	u.commitHash = nil
}

func upsertSingletonQC(tx *gorm.DB, table string, qc models.QuorumCertificate) error {
	row := dbQC{ID: 1, MessageType: int(qc.MessageType), ViewNumber: uint64(qc.ViewID), NodeHash: qc.NodeHash[:]}
	return tx.Table(table).Save(&row).Error
}

// DeleteNode removes a node and its instructions in one transaction; the
// instructions are deleted explicitly, no foreign key is declared (spec.md §6 "Deleted by cascade when the parent node is deleted").
func (c *ChainDB) DeleteNode(hash models.NodeHash) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		var node dbNode
		if err := tx.Where("hash = ?", hash[:]).First(&node).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if err := tx.Where("node_id = ?", node.ID).Delete(&dbInstruction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&node).Error
	})
}
