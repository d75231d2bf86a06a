package mempool

import (
	"time"

	goproto "github.com/golang/protobuf/proto"
	uuid "github.com/satori/go.uuid"

	"github.com/godanchain/node/mempool/proto"
)

const messageDeadline = 10 * time.Second

// SessionConfig bounds a single peer session (spec.md §4.2 admission
// rules and initial sync sizing).
type SessionConfig struct {
	InitialSyncMaxTransactions int
}

// MempoolPeerProtocol drives one session (initiator or responder) to
// completion over a framed substream, grounded on
// original_source/.../mempool/sync_protocol/mod.rs's MempoolPeerProtocol.
type MempoolPeerProtocol struct {
	config    SessionConfig
	framed    *CanonicalFraming
	store     *Store
	peerNode  string
	sessionID uuid.UUID
}

// NewMempoolPeerProtocol constructs a session over framed for the named
// peer. Each session gets a random correlation ID so its log lines can be
// grouped even though the caller spawns a fresh goroutine per session
// (spec.md §5 "one supervisor task plus one short-lived child task per
// session").
func NewMempoolPeerProtocol(config SessionConfig, framed *CanonicalFraming, peerNode string, store *Store) *MempoolPeerProtocol {
	return &MempoolPeerProtocol{config: config, framed: framed, store: store, peerNode: peerNode, sessionID: uuid.NewV4()}
}

// SessionID returns this session's log-correlation identifier.
func (p *MempoolPeerProtocol) SessionID() uuid.UUID {
	return p.sessionID
}

// StartInitiator runs the five-step initiator sequence of spec.md §4.2.
// On any error the substream is closed (flush errors are not modeled: the
// Substream contract has no separate flush) and the error is returned for
// the caller to log, never to ban.
func (p *MempoolPeerProtocol) StartInitiator() error {
	err := p.startInitiatorInner()
	p.framed.Close()
	return err
}

func (p *MempoolPeerProtocol) startInitiatorInner() error {
	transactions := p.store.Snapshot()
	max := p.config.InitialSyncMaxTransactions
	if max <= 0 || max > len(transactions) {
		max = len(transactions)
	}
	items := make([][]byte, 0, max)
	for _, tx := range transactions[:max] {
		items = append(items, []byte(tx.ExcessSig))
	}

	if err := p.writeMessage(&proto.TransactionInventory{Items: items}); err != nil {
		return err
	}

	if err := p.readAndInsertTransactionsUntilComplete(); err != nil {
		return err
	}

	var missing proto.InventoryIndexes
	if err := p.readMessage(&missing); err != nil {
		return err
	}

	toSend := make([]*StoredTransaction, 0, len(missing.Indexes))
	for _, idx := range missing.Indexes {
		if int(idx) < len(transactions) {
			toSend = append(toSend, transactions[idx])
		}
	}

	if len(missing.Indexes) > 0 {
		if err := p.writeTransactions(toSend); err != nil {
			return err
		}
	}

	return nil
}

// StartResponder runs the five-step responder sequence of spec.md §4.2.
func (p *MempoolPeerProtocol) StartResponder() error {
	err := p.startResponderInner()
	p.framed.Close()
	return err
}

func (p *MempoolPeerProtocol) startResponderInner() error {
	var inventory proto.TransactionInventory
	if err := p.readMessage(&inventory); err != nil {
		return err
	}

	local := p.store.Snapshot()
	known := make(map[string]struct{}, len(inventory.Items))
	for _, item := range inventory.Items {
		known[string(item)] = struct{}{}
	}

	var toSend []*StoredTransaction
	duplicatePositions := make(map[int]struct{})
	for i, item := range inventory.Items {
		for _, tx := range local {
			if string(tx.ExcessSig) == string(item) {
				duplicatePositions[i] = struct{}{}
				break
			}
		}
	}
	for _, tx := range local {
		if _, isDuplicate := known[string(tx.ExcessSig)]; !isDuplicate {
			toSend = append(toSend, tx)
		}
	}

	if err := p.writeTransactions(toSend); err != nil {
		return err
	}

	missingIndexes := make([]uint32, 0, len(inventory.Items))
	for i := range inventory.Items {
		if _, ok := duplicatePositions[i]; !ok {
			missingIndexes = append(missingIndexes, uint32(i))
		}
	}

	if err := p.writeMessage(&proto.InventoryIndexes{Indexes: missingIndexes}); err != nil {
		return err
	}

	if len(missingIndexes) > 0 {
		return p.readAndInsertTransactionsUntilComplete()
	}
	return nil
}

func (p *MempoolPeerProtocol) readAndInsertTransactionsUntilComplete() error {
	for {
		var item proto.TransactionItem
		if err := p.readMessage(&item); err != nil {
			return err
		}
		if item.Transaction == nil {
			recordPoolSizes(p.store.Stats())
			return nil
		}
		if err := p.validateAndInsert(item.Transaction); err != nil {
			return err
		}
	}
}

func (p *MempoolPeerProtocol) validateAndInsert(tx *proto.Transaction) error {
	if len(tx.KernelExcessSigs) == 0 {
		return newProtocolError(ErrExcessSignatureMissing, p.peerNode)
	}
	sig := ExcessSig(tx.KernelExcessSigs[0])

	if p.store.HasTransaction(sig) {
		return nil
	}
	outcome := p.store.Insert(sig, tx)
	if outcome.IsStored() {
		mempoolInboundTransactions.Inc(1)
	} else {
		mempoolRejectedInboundTransactions.Inc(1)
	}
	return nil
}

func (p *MempoolPeerProtocol) writeTransactions(transactions []*StoredTransaction) error {
	max := p.config.InitialSyncMaxTransactions
	for i, tx := range transactions {
		if max > 0 && i >= max {
			break
		}
		if err := p.writeMessage(&proto.TransactionItem{Transaction: tx.Transaction}); err != nil {
			return err
		}
	}
	return p.writeMessage(proto.Empty())
}

func (p *MempoolPeerProtocol) readMessage(m goproto.Message) error {
	buf, err := p.framed.ReadFrame(messageDeadline)
	if err != nil {
		return err
	}
	if err := goproto.Unmarshal(buf, m); err != nil {
		return &ProtocolError{Code: ErrDecodeFailed, Peer: p.peerNode}
	}
	return nil
}

func (p *MempoolPeerProtocol) writeMessage(m goproto.Message) error {
	buf, err := goproto.Marshal(m)
	if err != nil {
		return err
	}
	return p.framed.WriteFrame(buf, messageDeadline)
}
