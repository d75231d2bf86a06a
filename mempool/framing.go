package mempool

import (
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// MaxFrameSize is the canonical frame cap (spec.md §6): "length-delimited
// canonical frames, max 3 MiB".
const MaxFrameSize = 3 * 1024 * 1024

// ProtocolID is the mempool sync protocol identifier (spec.md §6).
const ProtocolID = "t/mempool-sync/1"

var errFrameTooLarge = errors.New("frame exceeds canonical maximum size")

// Substream is the minimal transport contract this core depends on: a
// byte stream with per-operation deadlines. The concrete transport (noise
// handshake, yamux multiplexing) is out of scope (spec.md §1).
type Substream interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// CanonicalFraming wraps a Substream with a 4-byte big-endian length
// prefix per message, rejecting frames above MaxFrameSize, grounded on
// tari_comms::framing as described in spec.md §6 and on the teacher's
// ReadMsg/Send message-framing idiom (node/cn/peer.go).
type CanonicalFraming struct {
	conn Substream
}

// NewCanonicalFraming wraps conn for canonical framed reads and writes.
func NewCanonicalFraming(conn Substream) *CanonicalFraming {
	return &CanonicalFraming{conn: conn}
}

// ReadFrame reads one length-delimited frame, applying deadline as the
// per-message read bound (spec.md §4.2 "every read of a single framed
// message by a 10 s receive deadline").
func (f *CanonicalFraming) ReadFrame(deadline time.Duration) ([]byte, error) {
	if err := f.conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
		return nil, err
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(f.conn, lenBuf[:]); err != nil {
		if isTimeout(err) {
			return nil, &ProtocolError{Code: ErrRecvTimeout}
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(lenBuf[:])
	if size > MaxFrameSize {
		return nil, errFrameTooLarge
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(f.conn, buf); err != nil {
		if isTimeout(err) {
			return nil, &ProtocolError{Code: ErrRecvTimeout}
		}
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes one length-delimited frame, applying deadline as the
// per-message write bound (spec.md §4.2 "every write is bounded by a
// 10 s send deadline").
func (f *CanonicalFraming) WriteFrame(payload []byte, deadline time.Duration) error {
	if len(payload) > MaxFrameSize {
		return errFrameTooLarge
	}
	if err := f.conn.SetWriteDeadline(time.Now().Add(deadline)); err != nil {
		return err
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := f.conn.Write(lenBuf[:]); err != nil {
		if isTimeout(err) {
			return &ProtocolError{Code: ErrSendTimeout}
		}
		return err
	}
	if _, err := f.conn.Write(payload); err != nil {
		if isTimeout(err) {
			return &ProtocolError{Code: ErrSendTimeout}
		}
		return err
	}
	return nil
}

// Close flushes nothing (the underlying transport buffers nothing of
// ours) and closes the substream, logging any close error rather than
// propagating it (spec.md §4.2 "errors on close are logged, never
// propagated").
func (f *CanonicalFraming) Close() {
	if err := f.conn.Close(); err != nil {
		storeLogger.Debug("IO error when closing mempool substream", "err", err)
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
