package main

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"os"

	"github.com/icetray-wallet/icetray/crypt"
	"github.com/icetray-wallet/icetray/descriptor"
	"github.com/icetray-wallet/icetray/dongle"
	"github.com/icetray-wallet/icetray/wallet"
)

// ICBOC 1D wallet files are a 12-byte header (magic plus a u32 account
// number, which is always 0) followed by fixed-size entries.  Each entry
// is a 16-byte AES-CTR IV and 336 bytes of ciphertext, keyed per entry
// by the chain code of the signer's key at 44h/0h/0h/3h/<entry>h.
const (
	icbocHeaderSize     = 12
	icbocEntrySize      = 352
	icbocPlainEntrySize = icbocEntrySize - 16

	icbocTimeStart  = 164
	icbocTimeEnd    = 188
	icbocNotesStart = 252
)

var icbocMagic = [8]byte{0x31, 0x60, 0xf9, 0x0d, 0xaa, 0xe5, 0x00, 0x01}

// importICBOC imports a legacy ICBOC 1D wallet file: it registers the
// legacy pkh descriptor over the file's entry count, decrypts every
// entry, labels the addresses of the nonzero ones, and saves.  A rescan
// is needed afterwards to pick up the imported addresses' txos.
func importICBOC(cfg *config, w *wallet.Wallet, d dongle.Dongle,
	key [crypt.KeySize]byte, walletPath string) error {

	data, err := os.ReadFile(cfg.ImportICBOC)
	if err != nil {
		return fmt.Errorf("reading legacy wallet: %v", err)
	}

	if len(data)%icbocEntrySize != icbocHeaderSize {
		return fmt.Errorf("bad legacy wallet size %d", len(data))
	}
	nEntries := len(data) / icbocEntrySize
	if !bytes.Equal(data[:8], icbocMagic[:]) {
		return fmt.Errorf("invalid legacy wallet (magic bytes %x, "+
			"expected %x)", data[:8], icbocMagic)
	}
	if !bytes.Equal(data[8:icbocHeaderSize], []byte{0, 0, 0, 0}) {
		return errors.New("legacy wallet account number is not 0")
	}
	if uint64(nEntries) >= 1<<31 {
		return fmt.Errorf("cannot import wallet with %d entries "+
			"(max 2^31)", nEntries)
	}

	fmt.Printf("Found legacy wallet with %d entries.  Fetching that "+
		"many keys from the signer.\n", nEntries)

	masterXpub, err := d.MasterXpub()
	if err != nil {
		return fmt.Errorf("getting master xpub: %v", err)
	}
	tmpl, err := descriptor.Parse(
		fmt.Sprintf("pkh(%s/44h/0h/0h/2h/*h)", masterXpub),
	)
	if err != nil {
		return err
	}

	descriptorIdx := uint32(len(w.Descriptors()))
	_, err = w.AddDescriptor(d, tmpl, 0, uint32(nEntries))
	if err != nil {
		return fmt.Errorf("importing descriptor: %w", err)
	}

	entries := data[icbocHeaderSize:]
	for i := 0; i < nEntries; i++ {
		enc := entries[i*icbocEntrySize : (i+1)*icbocEntrySize]
		iv, ciphertext := enc[:16], enc[16:]

		info, err := d.PublicKey(icbocEntryKeyPath(uint32(i)), false)
		if err != nil {
			return fmt.Errorf("fetching key for entry %d: %v", i, err)
		}
		plain, err := icbocDecrypt(info.ChainCode, iv, ciphertext)
		if err != nil {
			return fmt.Errorf("decrypting entry %d: %v", i, err)
		}

		// All-zero entries are unused slots.
		if isAllZero(plain) {
			continue
		}

		created := string(plain[icbocTimeStart:icbocTimeEnd])
		notes := plain[icbocNotesStart:]
		if end := bytes.IndexByte(notes, 0); end >= 0 {
			notes = notes[:end]
		}

		wildcardIdx := uint32(i)
		_, err = w.AddAddress(
			d, descriptorIdx, &wildcardIdx, created, string(notes),
		)
		if err != nil {
			return fmt.Errorf("importing address for entry %d: %v",
				i, err)
		}

		if i%25 == 24 {
			fmt.Printf("Done %d/%d\n", i+1, nEntries)
		}
	}

	if err := saveWallet(w, walletPath, key); err != nil {
		return fmt.Errorf("saving wallet after import: %v", err)
	}

	fmt.Println("Imported entries from legacy wallet.  You should now " +
		"run --rescan.")
	return nil
}

// icbocEntryKeyPath returns the derivation path of the key whose chain
// code encrypts the given entry.
func icbocEntryKeyPath(entry uint32) descriptor.DerivationPath {
	h := descriptor.HardenedKeyStart
	return descriptor.DerivationPath{44 + h, 0 + h, 0 + h, 3 + h,
		entry + h}
}

// icbocDecrypt runs one entry through AES-256-CTR.
func icbocDecrypt(key [32]byte, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(plain, ciphertext)
	return plain, nil
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
