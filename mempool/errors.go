package mempool

import "github.com/pkg/errors"

type errCode int

const (
	ErrDecodeFailed errCode = iota
	ErrExcessSignatureMissing
	ErrMessageConversionFailed
	ErrSubstreamClosed
	ErrRecvTimeout
	ErrSendTimeout
)

func (e errCode) String() string {
	return errorToString[e]
}

var errorToString = map[errCode]string{
	ErrDecodeFailed:            "failed to decode message",
	ErrExcessSignatureMissing:  "transaction has no kernel excess signature",
	ErrMessageConversionFailed: "failed to convert wire transaction",
	ErrSubstreamClosed:         "substream closed unexpectedly",
	ErrRecvTimeout:             "timed out receiving message",
	ErrSendTimeout:             "timed out sending message",
}

// ProtocolError wraps a protocol-violation errCode with peer context
// (spec.md §4.2 "Failure classification"). The surrounding connection
// manager, not this package, decides whether to ban the peer.
type ProtocolError struct {
	Code errCode
	Peer string
}

func (e *ProtocolError) Error() string {
	return errors.Errorf("%s (peer=%s)", e.Code, e.Peer).Error()
}

func newProtocolError(code errCode, peer string) error {
	return &ProtocolError{Code: code, Peer: peer}
}
