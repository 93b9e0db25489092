package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/icetray-wallet/icetray/crypt"
	"github.com/icetray-wallet/icetray/descriptor"
	"github.com/icetray-wallet/icetray/dongle"
	"github.com/icetray-wallet/icetray/wallet"
)

// printInfo summarizes the wallet contents.
func printInfo(w *wallet.Wallet, d dongle.Dongle) error {
	fmt.Printf("Network:      %s\n", activeNet.Name)
	fmt.Printf("Block height: %d\n", w.BlockHeight)
	fmt.Printf("Balance:      %s\n", w.Balance())

	for i, desc := range w.Descriptors() {
		fmt.Printf("Descriptor %d: %s range [%d,%d) next index %d\n",
			i, desc.Template, desc.Low, desc.High, desc.NextIdx)
	}
	fmt.Printf("%d labeled addresses, %d tracked txos\n",
		w.NumAddresses(), w.NumTxos())

	infos, err := w.AllTxos(d)
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Printf("  %s\n", info)
	}
	return nil
}

// registerDescriptor registers the descriptor given on the command line
// over [rangestart, rangeend) and saves the wallet.
func registerDescriptor(cfg *config, w *wallet.Wallet, d dongle.Dongle,
	key [crypt.KeySize]byte, walletPath string) error {

	tmpl, err := descriptor.Parse(cfg.Register)
	if err != nil {
		return err
	}

	added, err := w.AddDescriptor(d, tmpl, cfg.RangeStart, cfg.RangeEnd)
	if err != nil {
		return err
	}
	fmt.Printf("Imported descriptor %s, derived %d new keys\n",
		tmpl, added)

	return saveWallet(w, walletPath, key)
}

// allocateAddress labels a descriptor slot, auto-allocating the index
// unless --index was given, and saves the wallet.
func allocateAddress(cfg *config, w *wallet.Wallet, d dongle.Dongle,
	key [crypt.KeySize]byte, walletPath string) error {

	var wildcardIdx *uint32
	if cfg.Index >= 0 {
		idx := uint32(cfg.Index)
		wildcardIdx = &idx
	}

	created := time.Now().Format(time.RFC3339)
	info, err := w.AddAddress(
		d, cfg.Descriptor, wildcardIdx, created, cfg.Notes,
	)
	if err != nil {
		return err
	}
	fmt.Printf("Address %s (descriptor %d index %d)\n",
		info.Address.EncodeAddress(), info.DescriptorIdx,
		info.WildcardIdx)
	if len(info.Txos) > 0 {
		fmt.Printf("Warning: %d txos already tracked at this address\n",
			len(info.Txos))
	}

	return saveWallet(w, walletPath, key)
}

// rescanBlocks feeds a file of consecutively serialized blocks through
// the scanner, starting one past the wallet's recorded height, then
// saves.  An interrupt stops between blocks and still saves progress.
func rescanBlocks(cfg *config, w *wallet.Wallet, d dongle.Dongle,
	key [crypt.KeySize]byte, walletPath string) error {

	fh, err := os.Open(cfg.Rescan)
	if err != nil {
		return fmt.Errorf("opening block file: %v", err)
	}
	defer fh.Close()

	index, err := w.ScriptPubkeyCache(d)
	if err != nil {
		return err
	}
	log.Infof("Scanning for %d scripts from height %d", index.Len(),
		w.BlockHeight+1)

	var nReceived, nSpent int
	height := w.BlockHeight
	for !shutdownRequested() {
		var block wire.MsgBlock
		if err := block.Deserialize(fh); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("reading block at height %d: %v",
				height+1, err)
		}

		height++
		received, spent := w.ScanBlock(&block, height, index)
		nReceived += len(received)
		nSpent += len(spent)

		if height%1000 == 0 {
			log.Infof("Scanned to height %d", height)
		}
	}
	w.BlockHeight = height

	fmt.Printf("Scanned to height %d: %d outputs received, %d spent.  "+
		"Balance: %s\n", height, nReceived, nSpent, w.Balance())

	return saveWallet(w, walletPath, key)
}
