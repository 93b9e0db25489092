package crypt

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"io"
	"runtime/debug"

	"golang.org/x/crypto/scrypt"

	"github.com/icetray-wallet/icetray/internal/zero"
)

// Default scrypt parameters for passphrase-derived container keys.
const (
	DefaultScryptN = 262144
	DefaultScryptR = 8
	DefaultScryptP = 1
)

// ErrInvalidPassword is returned when a derived key's digest does not
// match the stored parameters.
var ErrInvalidPassword = errors.New("invalid password")

var prng = rand.Reader

// Parameters holds everything needed to re-derive a container key from a
// passphrase.  It is stored in the clear next to the encrypted wallet.
type Parameters struct {
	Salt   [KeySize]byte
	Digest [sha256.Size]byte
	N      int
	R      int
	P      int
}

// marshalledParamsSize is the fixed size of the marshalled parameters.
const marshalledParamsSize = KeySize + sha256.Size + 24

// SecretKey is a container key derived from a passphrase via scrypt.
type SecretKey struct {
	Key        [KeySize]byte
	Parameters Parameters
}

// NewSecretKey derives a fresh key from passphrase with a random salt.
func NewSecretKey(passphrase *[]byte, n, r, p int) (*SecretKey, error) {
	sk := SecretKey{}
	sk.Parameters.N = n
	sk.Parameters.R = r
	sk.Parameters.P = p
	if _, err := io.ReadFull(prng, sk.Parameters.Salt[:]); err != nil {
		return nil, err
	}

	if err := sk.deriveKey(passphrase); err != nil {
		return nil, err
	}
	sk.Parameters.Digest = sha256.Sum256(sk.Key[:])

	return &sk, nil
}

func (sk *SecretKey) deriveKey(passphrase *[]byte) error {
	key, err := scrypt.Key(
		*passphrase,
		sk.Parameters.Salt[:],
		sk.Parameters.N,
		sk.Parameters.R,
		sk.Parameters.P,
		KeySize,
	)
	if err != nil {
		return err
	}

	copy(sk.Key[:], key)
	zero.Bytes(key)

	// scrypt allocates a large transient buffer.
	debug.FreeOSMemory()
	return nil
}

// DeriveKey re-derives the key from passphrase and verifies it against
// the stored digest.
func (sk *SecretKey) DeriveKey(passphrase *[]byte) error {
	if err := sk.deriveKey(passphrase); err != nil {
		return err
	}

	digest := sha256.Sum256(sk.Key[:])
	if subtle.ConstantTimeCompare(digest[:], sk.Parameters.Digest[:]) != 1 {
		return ErrInvalidPassword
	}
	return nil
}

// Marshal serializes the derivation parameters (not the key itself).
func (sk *SecretKey) Marshal() []byte {
	params := &sk.Parameters
	marshalled := make([]byte, marshalledParamsSize)

	b := marshalled
	copy(b[:KeySize], params.Salt[:])
	b = b[KeySize:]
	copy(b[:sha256.Size], params.Digest[:])
	b = b[sha256.Size:]
	binary.LittleEndian.PutUint64(b[:8], uint64(params.N))
	b = b[8:]
	binary.LittleEndian.PutUint64(b[:8], uint64(params.R))
	b = b[8:]
	binary.LittleEndian.PutUint64(b[:8], uint64(params.P))

	return marshalled
}

// Unmarshal restores derivation parameters written by Marshal.  The key
// itself must be re-derived with DeriveKey.
func (sk *SecretKey) Unmarshal(marshalled []byte) error {
	if len(marshalled) != marshalledParamsSize {
		return ErrMalformed
	}

	params := &sk.Parameters
	b := marshalled
	copy(params.Salt[:], b[:KeySize])
	b = b[KeySize:]
	copy(params.Digest[:], b[:sha256.Size])
	b = b[sha256.Size:]
	params.N = int(binary.LittleEndian.Uint64(b[:8]))
	b = b[8:]
	params.R = int(binary.LittleEndian.Uint64(b[:8]))
	b = b[8:]
	params.P = int(binary.LittleEndian.Uint64(b[:8]))

	return nil
}

// Zero clears the derived key material.
func (sk *SecretKey) Zero() {
	zero.Bytea32(&sk.Key)
}

// RandomNonce draws a fresh container nonce.
func RandomNonce() ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	_, err := io.ReadFull(prng, nonce[:])
	return nonce, err
}
