package wallet

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/icetray-wallet/icetray/dongle"
)

// indexEntry locates one descriptor slot.
type indexEntry struct {
	descriptorIdx uint32
	wildcardIdx   uint32
}

// ScriptPubkeyCache is an opaque reverse index from output script to the
// descriptor slot that owns it.  It is a point-in-time snapshot over the
// wallet's full declared coverage and is never persisted; callers must
// rebuild it after any registration that changes coverage.
type ScriptPubkeyCache struct {
	spks map[string]indexEntry
}

// Lookup resolves a script to its owning descriptor slot.
func (c *ScriptPubkeyCache) Lookup(script []byte) (uint32, uint32, bool) {
	entry, ok := c.spks[string(script)]
	return entry.descriptorIdx, entry.wildcardIdx, ok
}

// Len returns the number of indexed scripts.
func (c *ScriptPubkeyCache) Len() int {
	return len(c.spks)
}

// ScriptPubkeyCache instantiates every declared descriptor slot and
// builds the reverse script index used by block scanning.  Despite being
// a query, building the index derives any keys not yet cached and so
// mutates the key cache; with a cold cache it performs one device
// round-trip per uncovered slot.
func (w *Wallet) ScriptPubkeyCache(d dongle.Dongle) (*ScriptPubkeyCache, error) {
	spks := make(map[string]indexEntry)
	for didx, desc := range w.descriptors {
		for widx := desc.Low; widx < desc.High; widx++ {
			script, err := w.scriptPubkey(d, uint32(didx), widx)
			if err != nil {
				return nil, err
			}
			spks[string(script)] = indexEntry{
				descriptorIdx: uint32(didx),
				wildcardIdx:   widx,
			}
		}
	}
	return &ScriptPubkeyCache{spks: spks}, nil
}

// ScanBlock walks a block and updates the wallet's txo set: outputs
// paying to an indexed script become tracked txos, and inputs spending a
// tracked txo mark it spent.  It returns the outpoints received and
// spent.
//
// Within one transaction outputs are processed before inputs, and
// transactions in block order, so a same-transaction self-transfer is
// seen as a receive then a spend.  No cross-transaction ordering beyond
// block order is assumed; out-of-order block replay is unsupported.
func (w *Wallet) ScanBlock(block *wire.MsgBlock, height uint64,
	index *ScriptPubkeyCache) (received, spent map[wire.OutPoint]struct{}) {

	received = make(map[wire.OutPoint]struct{})
	spent = make(map[wire.OutPoint]struct{})

	for _, tx := range block.Transactions {
		txid := tx.TxHash()

		for vout, out := range tx.TxOut {
			didx, widx, ok := index.Lookup(out.PkScript)
			if !ok {
				continue
			}
			outpoint := wire.OutPoint{
				Hash:  txid,
				Index: uint32(vout),
			}
			w.txos[outpoint] = &Txo{
				DescriptorIdx: didx,
				WildcardIdx:   widx,
				OutPoint:      outpoint,
				Value:         out.Value,
				Height:        height,
			}
			received[outpoint] = struct{}{}

			log.Debugf("Received %d sat at %s (height %d)",
				out.Value, outpoint, height)
		}

		for _, in := range tx.TxIn {
			txo, ok := w.txos[in.PreviousOutPoint]
			if !ok {
				continue
			}
			txo.setSpent(txid, height)
			spent[in.PreviousOutPoint] = struct{}{}

			log.Debugf("Spent %s in %s (height %d)",
				in.PreviousOutPoint, txid, height)
		}
	}

	return received, spent
}
