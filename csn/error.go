package csn

import (
	"errors"
	"fmt"
)

// Every failure while taking in a block wraps one of these sentinels,
// so callers can sort a bad envelope from a bad proof with errors.Is.
var (
	// ErrMalformedInput means the block envelope couldn't be decoded or
	// its pieces don't line up with each other.
	ErrMalformedInput = errors.New("malformed input")

	// ErrHeaderRejected means the header doesn't build on a block we
	// know, or fails its own proof of work.
	ErrHeaderRejected = errors.New("header rejected")

	// ErrProofExhausted means the block spends more utxos than the
	// envelope carries leaf data for.
	ErrProofExhausted = errors.New("ran out of leaf data")

	// ErrInvalidProof means the deletion proof doesn't verify against
	// the accumulator roots.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrConnectRejected means the block can't go on top of the
	// current tip.
	ErrConnectRejected = errors.New("connect rejected")

	// ErrInvalidAddress means a watch address couldn't be parsed for
	// the configured network.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrStoreFailure means the chain store failed underneath us.
	ErrStoreFailure = errors.New("chain store failure")

	ErrInvalidNetwork = errors.New("invalid/not supported net flag given")
)

func errInvalidNetwork(nType string) error {
	return fmt.Errorf("%w: %s", ErrInvalidNetwork, nType)
}

// errStore files a store error under ErrStoreFailure.
func errStore(err error) error {
	return fmt.Errorf("%w: %s", ErrStoreFailure, err)
}
