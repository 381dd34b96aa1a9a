// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Fingerprint is a BLAKE3 digest of a template's structure: its title
// and the (id, kind) pair of every widget in order. Widget state is not
// included.
type Fingerprint [32]byte

// fingerprintKey separates template fingerprints from any other BLAKE3
// use. The bytes are the ASCII domain name, zero-padded to 32.
var fingerprintKey = [32]byte{
	'm', 'o', 'd', 'u', 'l', 'a', 'r', 'u', 'i', '.', 't', 'e', 'm', 'p', 'l', 'a',
	't', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Fingerprint computes the structural digest of t.
func (t *Template) Fingerprint() Fingerprint {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		// Only fails for a key that is not 32 bytes.
		panic("template: blake3 keyed hasher: " + err.Error())
	}

	var scratch []byte
	scratch = binary.AppendUvarint(scratch, uint64(len(t.title)))
	scratch = append(scratch, t.title...)
	scratch = binary.AppendUvarint(scratch, uint64(len(t.widgets)))
	hasher.Write(scratch)

	for id, w := range t.widgets {
		kind := w.Kind()
		scratch = scratch[:0]
		scratch = binary.AppendUvarint(scratch, uint64(id))
		scratch = binary.AppendUvarint(scratch, uint64(len(kind)))
		scratch = append(scratch, kind...)
		hasher.Write(scratch)
	}

	var fingerprint Fingerprint
	copy(fingerprint[:], hasher.Sum(nil))
	return fingerprint
}

// String returns the fingerprint in hex.
func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// Short returns the first 8 hex digits, for log lines.
func (f Fingerprint) Short() string { return f.String()[:8] }

// Verify compares the local template's fingerprint against the one the
// authoritative side sent. A mismatch wraps ErrDivergence.
func (t *Template) Verify(remote []byte) error {
	local := t.Fingerprint()
	if len(remote) != len(local) || !bytes.Equal(local[:], remote) {
		return fmt.Errorf("%w: local fingerprint %s (%d widgets) does not match remote %x",
			ErrDivergence, local.Short(), len(t.widgets), remote)
	}
	return nil
}
