package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/icetray-wallet/icetray/crypt"
	"github.com/icetray-wallet/icetray/dongle"
	"github.com/icetray-wallet/icetray/wallet"
)

var testSeed = []byte{
	0x2a, 0x64, 0xdf, 0x08, 0x5e, 0xef, 0xed, 0xd8, 0xbf,
	0xdb, 0xb3, 0x31, 0x76, 0xb5, 0xba, 0x2e, 0x62, 0xe8,
	0xbe, 0x8b, 0x56, 0xc8, 0x83, 0x77, 0x95, 0x59, 0x8b,
	0xb6, 0xc4, 0x40, 0xc0, 0x64,
}

// buildLegacyWallet assembles an ICBOC 1D file whose entries encrypt to
// the given plaintexts, using the same per-entry chain-code keys the
// importer will derive.
func buildLegacyWallet(t *testing.T, d dongle.Dongle,
	plaintexts [][]byte) []byte {

	t.Helper()

	var buf bytes.Buffer
	buf.Write(icbocMagic[:])
	buf.Write([]byte{0, 0, 0, 0})

	for i, plain := range plaintexts {
		require.Len(t, plain, icbocPlainEntrySize)

		iv := make([]byte, 16)
		iv[0] = byte(i + 1)

		info, err := d.PublicKey(icbocEntryKeyPath(uint32(i)), false)
		require.NoError(t, err)

		// CTR mode is its own inverse.
		ciphertext, err := icbocDecrypt(info.ChainCode, iv, plain)
		require.NoError(t, err)

		buf.Write(iv)
		buf.Write(ciphertext)
	}
	return buf.Bytes()
}

func TestImportICBOC(t *testing.T) {
	fake, err := dongle.NewFake(testSeed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	// Entry 0 is an unused all-zero slot; entry 1 carries a timestamp
	// and notes at the legacy offsets.
	empty := make([]byte, icbocPlainEntrySize)
	used := make([]byte, icbocPlainEntrySize)
	used[0] = 0x01
	copy(used[icbocTimeStart:icbocTimeEnd], "2014-06-01 12:00:00 UTC ")
	copy(used[icbocNotesStart:], "cold storage\x00garbage after nul")

	legacyPath := filepath.Join(t.TempDir(), "icboc.dat")
	data := buildLegacyWallet(t, fake, [][]byte{empty, used})
	require.NoError(t, os.WriteFile(legacyPath, data, 0600))

	w := wallet.New(&chaincfg.MainNetParams)
	walletPath := filepath.Join(t.TempDir(), walletFilename)
	key := [crypt.KeySize]byte{0x11}

	cfg := &config{ImportICBOC: legacyPath}
	require.NoError(t, importICBOC(cfg, w, fake, key, walletPath))

	// The legacy descriptor covers one slot per entry.
	require.Len(t, w.Descriptors(), 1)
	desc := w.Descriptors()[0]
	require.Equal(t, uint32(0), desc.Low)
	require.Equal(t, uint32(2), desc.High)

	// Only the nonzero entry produced a label.
	require.Equal(t, 1, w.NumAddresses())
	err = w.ForEachAddress(func(_ []byte, addr *wallet.Address) error {
		require.Equal(t, uint32(1), addr.WildcardIdx)
		require.Equal(t, "2014-06-01 12:00:00 UTC ", addr.Created)
		require.Equal(t, "cold storage", addr.Notes)
		return nil
	})
	require.NoError(t, err)

	// The import saved the wallet out.
	fh, err := os.Open(walletPath)
	require.NoError(t, err)
	defer fh.Close()
	loaded, err := wallet.Load(fh, key, &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.NumAddresses())
}

func TestImportICBOCRejectsBadFiles(t *testing.T) {
	fake, err := dongle.NewFake(testSeed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	w := wallet.New(&chaincfg.MainNetParams)
	dir := t.TempDir()
	walletPath := filepath.Join(dir, walletFilename)
	key := [crypt.KeySize]byte{0x11}

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated header", icbocMagic[:4]},
		{"bad magic", append(make([]byte, 8), 0, 0, 0, 0)},
		{"nonzero account", append(icbocMagic[:], 1, 0, 0, 0)},
		{"ragged size", append(icbocMagic[:], make([]byte, 5)...)},
	}
	for _, test := range tests {
		path := filepath.Join(dir, test.name)
		require.NoError(t, os.WriteFile(path, test.data, 0600))

		cfg := &config{ImportICBOC: path}
		err := importICBOC(cfg, w, fake, key, walletPath)
		require.Error(t, err, test.name)
	}
	require.Empty(t, w.Descriptors())
}
