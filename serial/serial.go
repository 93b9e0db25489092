// Package serial implements the bounded binary encoding used by the
// on-disk wallet format.  Every composite value is length prefixed and
// checked against a hard maximum before any allocation or iteration
// happens, so a corrupted or hostile wallet file can never drive
// unbounded memory use.
package serial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	// MaxCollectionLen is the largest number of elements in any
	// sequence, set, or map we will serialize.
	MaxCollectionLen = 10000

	// MaxStringLen is the largest size, in bytes, of a user-provided
	// string such as an address note.
	MaxStringLen = 100000

	// MaxScriptLen is the largest size, in bytes, of an output script
	// we will serialize.  All script families the wallet instantiates
	// are well under this.
	MaxScriptLen = 50

	// MaxTemplateLen is the largest size, in bytes, of a descriptor
	// template in its textual form.
	MaxTemplateLen = 65536
)

// ErrMalformed is the sentinel wrapped by every decode or bound failure.
// Any error from this package fatals the whole load/save operation; there
// is no partial recovery.
var ErrMalformed = errors.New("malformed wallet data")

// boundError describes a violated size bound, naming both the bound and
// the observed size.
func boundError(verb, kind string, n, max uint32) error {
	return fmt.Errorf("%s %s of length %d exceeds max %d: %w",
		verb, kind, n, max, ErrMalformed)
}

// readFull wraps io errors so that a truncated stream surfaces as
// malformed data rather than a bare EOF.
func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("short read: %v: %w", err, ErrMalformed)
	}
	return nil
}

// WriteUint8 writes a single byte.
func WriteUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

// ReadUint8 reads a single byte.
func ReadUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteUint32 writes a 32-bit integer as four bytes, little endian.
func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadUint32 reads a little-endian 32-bit integer.
func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// WriteUint64 writes a 64-bit integer as two 32-bit halves, low half
// first.
func WriteUint64(w io.Writer, v uint64) error {
	if err := WriteUint32(w, uint32(v)); err != nil {
		return err
	}
	return WriteUint32(w, uint32(v>>32))
}

// ReadUint64 reads a 64-bit integer written by WriteUint64.
func ReadUint64(r io.Reader) (uint64, error) {
	lo, err := ReadUint32(r)
	if err != nil {
		return 0, err
	}
	hi, err := ReadUint32(r)
	if err != nil {
		return 0, err
	}
	return uint64(lo) | uint64(hi)<<32, nil
}

// WriteLen validates a collection length against max and writes it as a
// u32 prefix.  The check happens before the prefix is written, so a bound
// violation emits no payload bytes at all.
func WriteLen(w io.Writer, n int, max uint32, kind string) error {
	if uint64(n) > uint64(max) {
		return boundError("writing", kind, uint32(n), max)
	}
	return WriteUint32(w, uint32(n))
}

// ReadLen reads a u32 length prefix and validates it against max before
// the caller allocates or iterates anything.
func ReadLen(r io.Reader, max uint32, kind string) (uint32, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return 0, err
	}
	if n > max {
		return 0, boundError("reading", kind, n, max)
	}
	return n, nil
}

// WriteBytes writes a length-prefixed byte slice, enforcing max.
func WriteBytes(w io.Writer, b []byte, max uint32, kind string) error {
	if err := WriteLen(w, len(b), max, kind); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadBytes reads a length-prefixed byte slice written by WriteBytes.
func ReadBytes(r io.Reader, max uint32, kind string) ([]byte, error) {
	n, err := ReadLen(r, max, kind)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := readFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteString writes a length-prefixed string, enforcing max.
func WriteString(w io.Writer, s string, max uint32, kind string) error {
	return WriteBytes(w, []byte(s), max, kind)
}

// ReadString reads a length-prefixed string written by WriteString.
//
// Unlike implementations in languages with validated string types, no
// UTF-8 check is performed here; Go strings are arbitrary byte
// sequences and the encoder never emits anything else.
func ReadString(r io.Reader, max uint32, kind string) (string, error) {
	b, err := ReadBytes(r, max, kind)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteHash writes a 32-byte hash as fixed-width binary.
func WriteHash(w io.Writer, h *chainhash.Hash) error {
	_, err := w.Write(h[:])
	return err
}

// ReadHash reads a fixed-width 32-byte hash.
func ReadHash(r io.Reader) (*chainhash.Hash, error) {
	var h chainhash.Hash
	if err := readFull(r, h[:]); err != nil {
		return nil, err
	}
	return &h, nil
}

// WriteOutPoint writes an outpoint as its txid followed by the u32 output
// index.
func WriteOutPoint(w io.Writer, op *wire.OutPoint) error {
	if err := WriteHash(w, &op.Hash); err != nil {
		return err
	}
	return WriteUint32(w, op.Index)
}

// ReadOutPoint reads an outpoint written by WriteOutPoint.
func ReadOutPoint(r io.Reader) (wire.OutPoint, error) {
	var op wire.OutPoint
	h, err := ReadHash(r)
	if err != nil {
		return op, err
	}
	op.Hash = *h
	op.Index, err = ReadUint32(r)
	return op, err
}

// WritePublicKey writes a public key in its standard 33-byte compressed
// point serialization.
func WritePublicKey(w io.Writer, pub *btcec.PublicKey) error {
	_, err := w.Write(pub.SerializeCompressed())
	return err
}

// ReadPublicKey reads a public key in standard point serialization.  The
// leading marker byte determines the length: markers below 4 denote the
// 33-byte compressed form, anything else the 65-byte uncompressed form.
func ReadPublicKey(r io.Reader) (*btcec.PublicKey, error) {
	var buf [65]byte
	if err := readFull(r, buf[:1]); err != nil {
		return nil, err
	}
	keyBytes := buf[:33]
	if buf[0] >= 4 {
		keyBytes = buf[:65]
	}
	if err := readFull(r, keyBytes[1:]); err != nil {
		return nil, err
	}
	pub, err := btcec.ParsePubKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %v: %w",
			err, ErrMalformed)
	}
	return pub, nil
}
