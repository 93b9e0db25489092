// Package crypt implements the encrypted container that wraps the
// serialized wallet on disk.  The container is a magic header, the
// nonce, and a single ChaCha20-Poly1305 sealed payload.  Authenticated
// encryption is used deliberately so that a wrong key or a flipped bit
// is detected at the container boundary rather than relying solely on
// the codec's structural checks.
package crypt

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the size, in bytes, of the container key.
	KeySize = 32

	// NonceSize is the size, in bytes, of the container nonce.
	NonceSize = chacha20poly1305.NonceSize
)

// fileMagic identifies an encrypted wallet container, including a format
// version byte.
var fileMagic = [8]byte{'I', 'C', 'E', 'T', 'R', 'A', 'Y', 0x01}

var (
	// ErrMalformed is returned when the container framing is not
	// recognizable, e.g. a wrong magic or a truncated header.
	ErrMalformed = errors.New("malformed container")

	// ErrDecryptFailed is returned when the payload fails to
	// authenticate, which is the expected symptom of a wrong key.
	ErrDecryptFailed = errors.New("unable to decrypt")
)

// flusher is implemented by sinks that buffer writes.
type flusher interface {
	Flush() error
}

// CryptWriter encrypts everything written to it and emits the sealed
// container to the underlying sink.  The lifecycle is two phase: Init
// must be called before any payload bytes are written and Finalize after
// the last one.
type CryptWriter struct {
	w     io.Writer
	key   [KeySize]byte
	nonce [NonceSize]byte
	buf   bytes.Buffer

	started  bool
	finished bool
}

// NewCryptWriter constructs a writer that seals its payload under the
// given key and nonce.
func NewCryptWriter(key [KeySize]byte, nonce [NonceSize]byte,
	w io.Writer) *CryptWriter {

	return &CryptWriter{w: w, key: key, nonce: nonce}
}

// Init emits the container header.  It must run before any payload bytes
// are written.
func (cw *CryptWriter) Init() error {
	if cw.started {
		return errors.New("container writer already initialized")
	}
	cw.started = true

	if _, err := cw.w.Write(fileMagic[:]); err != nil {
		return err
	}
	_, err := cw.w.Write(cw.nonce[:])
	return err
}

// Write accumulates payload plaintext.  Nothing reaches the sink until
// Finalize seals the payload.
func (cw *CryptWriter) Write(p []byte) (int, error) {
	if !cw.started || cw.finished {
		return 0, errors.New("container writer not accepting payload")
	}
	return cw.buf.Write(p)
}

// Finalize seals the accumulated payload, writes the ciphertext and
// authentication tag, and flushes the sink.  It must run after all
// payload bytes are written; the writer is unusable afterwards.
func (cw *CryptWriter) Finalize() error {
	if !cw.started || cw.finished {
		return errors.New("container writer not initialized")
	}
	cw.finished = true

	aead, err := chacha20poly1305.New(cw.key[:])
	if err != nil {
		return err
	}
	sealed := aead.Seal(nil, cw.nonce[:], cw.buf.Bytes(), fileMagic[:])
	if _, err := cw.w.Write(sealed); err != nil {
		return err
	}
	if f, ok := cw.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// CryptReader yields the decrypted plaintext of a container produced by
// CryptWriter under the same key.  The whole payload is authenticated
// before the first byte is served.
type CryptReader struct {
	r *bytes.Reader
}

// NewCryptReader opens an encrypted container.  A wrong key surfaces as
// ErrDecryptFailed.
func NewCryptReader(key [KeySize]byte, r io.Reader) (*CryptReader, error) {
	var header [len(fileMagic) + NonceSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading container header: %v: %w",
			err, ErrMalformed)
	}
	if !bytes.Equal(header[:len(fileMagic)], fileMagic[:]) {
		return nil, fmt.Errorf("bad container magic: %w", ErrMalformed)
	}
	nonce := header[len(fileMagic):]

	sealed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading container payload: %v: %w",
			err, ErrMalformed)
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, sealed, fileMagic[:])
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return &CryptReader{r: bytes.NewReader(plain)}, nil
}

// Read serves decrypted plaintext.
func (cr *CryptReader) Read(p []byte) (int, error) {
	return cr.r.Read(p)
}
