package crypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testKey = [KeySize]byte{
		0x2a, 0x64, 0xdf, 0x08, 0x5e, 0xef, 0xed, 0xd8,
		0xbf, 0xdb, 0xb3, 0x31, 0x76, 0xb5, 0xba, 0x2e,
		0x62, 0xe8, 0xbe, 0x8b, 0x56, 0xc8, 0x83, 0x77,
		0x95, 0x59, 0x8b, 0xb6, 0xc4, 0x40, 0xc0, 0x64,
	}
	testNonce = [NonceSize]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
)

func sealPayload(t *testing.T, payload []byte) []byte {
	t.Helper()

	var out bytes.Buffer
	cw := NewCryptWriter(testKey, testNonce, &out)
	require.NoError(t, cw.Init())
	_, err := cw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, cw.Finalize())
	return out.Bytes()
}

func TestRoundTrip(t *testing.T) {
	payload := []byte("three may keep a secret, if two of them are dead")
	sealed := sealPayload(t, payload)

	cr, err := NewCryptReader(testKey, bytes.NewReader(sealed))
	require.NoError(t, err)

	got := make([]byte, len(payload))
	_, err = cr.Read(got)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriteBeforeInit(t *testing.T) {
	var out bytes.Buffer
	cw := NewCryptWriter(testKey, testNonce, &out)
	_, err := cw.Write([]byte("early"))
	require.Error(t, err)
}

func TestWrongKey(t *testing.T) {
	sealed := sealPayload(t, []byte("payload"))

	wrongKey := testKey
	wrongKey[0] ^= 0xff
	_, err := NewCryptReader(wrongKey, bytes.NewReader(sealed))
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestTamperedPayload(t *testing.T) {
	sealed := sealPayload(t, []byte("payload"))
	sealed[len(sealed)-1] ^= 0x01

	_, err := NewCryptReader(testKey, bytes.NewReader(sealed))
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestBadMagic(t *testing.T) {
	sealed := sealPayload(t, []byte("payload"))
	sealed[0] ^= 0x01

	_, err := NewCryptReader(testKey, bytes.NewReader(sealed))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestSecretKeyDeriveAndVerify(t *testing.T) {
	pass := []byte("hunter2")
	sk, err := NewSecretKey(&pass, 16, 8, 1)
	require.NoError(t, err)

	// Re-derive from the marshalled parameters alone.
	var restored SecretKey
	require.NoError(t, restored.Unmarshal(sk.Marshal()))
	require.NoError(t, restored.DeriveKey(&pass))
	require.Equal(t, sk.Key, restored.Key)

	wrong := []byte("hunter3")
	var again SecretKey
	require.NoError(t, again.Unmarshal(sk.Marshal()))
	require.ErrorIs(t, again.DeriveKey(&wrong), ErrInvalidPassword)
}
