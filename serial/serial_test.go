package serial

import (
	"bytes"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestUint32LittleEndian(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 0x04030201))
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf.Bytes())

	v, err := ReadUint32(&buf)
	require.NoError(t, err)
	require.Equal(t, uint32(0x04030201), v)
}

func TestUint64HalvesLowFirst(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint64(&buf, 0x0807060504030201))

	// Low 32-bit half first, each half little endian.
	require.Equal(t,
		[]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		buf.Bytes())

	v, err := ReadUint64(&buf)
	require.NoError(t, err)
	require.Equal(t, uint64(0x0807060504030201), v)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "petty cash", MaxStringLen, "note"))
	s, err := ReadString(&buf, MaxStringLen, "note")
	require.NoError(t, err)
	require.Equal(t, "petty cash", s)
}

func TestWriteBoundCheckedBeforePayload(t *testing.T) {
	var buf bytes.Buffer
	err := WriteString(&buf, strings.Repeat("x", 51), MaxScriptLen, "script")
	require.ErrorIs(t, err, ErrMalformed)
	require.Contains(t, err.Error(), "length 51")
	require.Contains(t, err.Error(), "max 50")

	// The bound fires before anything is written.
	require.Zero(t, buf.Len())
}

func TestReadBoundCheckedBeforeAllocation(t *testing.T) {
	// A length prefix of 10001 with no payload behind it must fail on
	// the bound, not on the missing payload bytes.
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, MaxCollectionLen+1))

	_, err := ReadLen(&buf, MaxCollectionLen, "txo map")
	require.ErrorIs(t, err, ErrMalformed)
	require.Contains(t, err.Error(), "length 10001")
	require.Contains(t, err.Error(), "max 10000")
	require.Contains(t, err.Error(), "txo map")
}

func TestTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "hello", MaxStringLen, "note"))
	short := buf.Bytes()[:buf.Len()-2]

	_, err := ReadString(bytes.NewReader(short), MaxStringLen, "note")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestOutPointRoundTrip(t *testing.T) {
	h, err := chainhash.NewHashFromStr("2222222222222222222222222222" +
		"222222222222222222222222222222222222")
	require.NoError(t, err)

	op := wire.OutPoint{Hash: *h, Index: 9999}
	var buf bytes.Buffer
	require.NoError(t, WriteOutPoint(&buf, &op))

	got, err := ReadOutPoint(&buf)
	require.NoError(t, err)
	require.Equal(t, op, got)
}

func TestPublicKeyForms(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey()

	// Compressed form as written by the encoder.
	var buf bytes.Buffer
	require.NoError(t, WritePublicKey(&buf, pub))
	require.Equal(t, 33, buf.Len())

	got, err := ReadPublicKey(&buf)
	require.NoError(t, err)
	require.True(t, pub.IsEqual(got))

	// Uncompressed form, inferred from the 0x04 marker byte.
	got, err = ReadPublicKey(bytes.NewReader(pub.SerializeUncompressed()))
	require.NoError(t, err)
	require.True(t, pub.IsEqual(got))

	// A bogus marker byte is malformed data, not a crash.
	_, err = ReadPublicKey(bytes.NewReader(make([]byte, 33)))
	require.ErrorIs(t, err, ErrMalformed)
}
