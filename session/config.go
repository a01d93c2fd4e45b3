/*
@Description: session configuration and validation
@Language: Go 1.23.4
*/

package session

import (
	"time"

	"github.com/pkg/errors"

	"fecudp/fec"
)

// Config carries everything the two endpoints of a session must agree on
// out of band, per spec.md §6: MSS (and therefore symbol_size/data_mss),
// max_group_size, window_size, plus the parity policy and cipher this
// deployment layers on top of the bare codec.
type Config struct {
	// MSS is the maximum wire packet size; symbol_size and data_mss are
	// derived from it via fec.SymbolSize/fec.DataMSS.
	MSS int

	// MaxGroupSize bounds decoder symbol_id and therefore group width.
	MaxGroupSize int

	// WindowSize bounds decoder memory in groups.
	WindowSize uint64

	// ParityCount is the sender's policy for how many parity symbols to
	// compute per flushed group. Choosing it is explicitly out of scope
	// for the codec itself (spec.md §1); Config is where that policy
	// lives.
	ParityCount uint8

	// FlushInterval bounds how long a partially-filled group may sit in
	// the encoder before its parities are sealed and sent, trading
	// recovery latency against redundancy overhead.
	FlushInterval time.Duration

	// Key and Cipher configure the BlockCrypt applied to every wire
	// packet. Cipher names are looked up via crypto.Select; an empty
	// Cipher disables encryption entirely.
	Key    []byte
	Cipher string
}

// DefaultConfig returns a reasonable configuration for a LAN-scale session.
func DefaultConfig() *Config {
	return &Config{
		MSS:           1400,
		MaxGroupSize:  32,
		WindowSize:    64,
		ParityCount:   2,
		FlushInterval: 20 * time.Millisecond,
		Cipher:        "aes-gcm",
	}
}

// Validate rejects configuration-time misuse per spec.md §7's ConfigInvalid
// row: MSS too small, window_size == 0, and the session-layer additions
// (parity policy, group sizing, flush cadence) that must also be sane
// before a codec is constructed from them.
func (c *Config) Validate() error {
	if _, err := fec.DataMSS(c.MSS); err != nil {
		return errors.Wrap(fec.ErrConfigInvalid, err.Error())
	}
	if c.MaxGroupSize <= 0 || c.MaxGroupSize > 255 {
		return errors.Wrap(fec.ErrConfigInvalid, "max_group_size must be in (0, 255]")
	}
	if c.WindowSize == 0 {
		return errors.Wrap(fec.ErrConfigInvalid, "window_size must be > 0")
	}
	if c.ParityCount == 0 {
		return errors.Wrap(fec.ErrConfigInvalid, "parity_count must be > 0")
	}
	if c.FlushInterval <= 0 {
		return errors.Wrap(fec.ErrConfigInvalid, "flush_interval must be > 0")
	}
	return nil
}
