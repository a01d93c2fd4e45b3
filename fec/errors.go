/*
@Description: error kinds for the FEC codec
@Language: Go 1.23.4
*/

package fec

import "github.com/pkg/errors"

// Per-packet errors are swallowed by the decoder and never leave the package
// with a stack trace attached: they are expected, high-frequency events on a
// lossy substrate, not programming mistakes.
var (
	ErrMssTooSmall   = errors.New("fec: mss too small for header")
	ErrShortPacket   = errors.New("fec: packet shorter than header")
	ErrShortSymbol   = errors.New("fec: symbol shorter than data-symbol header")
	ErrBufferTooSmall = errors.New("fec: output buffer smaller than header+data")

	// ErrEmptyGroup and ErrConfigInvalid are construction/misuse errors; callers
	// are expected to surface these, so they carry a stack via errors.WithStack
	// at the point they are returned.
	ErrEmptyGroup    = errors.New("fec: flush_parities called on an empty group")
	ErrConfigInvalid = errors.New("fec: invalid codec configuration")
)
