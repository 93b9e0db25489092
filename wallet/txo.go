package wallet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/icetray-wallet/icetray/dongle"
)

// Txo is one tracked transaction output.  Txos are created only by block
// scanning and are never deleted; scanning later marks them spent.
type Txo struct {
	// DescriptorIdx and WildcardIdx identify the descriptor slot whose
	// script the output pays to.
	DescriptorIdx uint32
	WildcardIdx   uint32

	// OutPoint is the output's location in the chain.
	OutPoint wire.OutPoint

	// Value is the output amount in satoshis.
	Value int64

	// Height is the height of the block the output was received in.
	Height uint64

	// SpendingTxid is the transaction that spent this output, nil
	// while unspent.  SpentHeight is only meaningful when
	// SpendingTxid is set.
	SpendingTxid *chainhash.Hash
	SpentHeight  uint64
}

// Unspent reports whether the output has not been seen spent.
func (t *Txo) Unspent() bool {
	return t.SpendingTxid == nil
}

// setSpent records the spending transaction and height.
func (t *Txo) setSpent(txid chainhash.Hash, height uint64) {
	spent := txid
	t.SpendingTxid = &spent
	t.SpentHeight = height
}

// TxoInfo joins a tracked output with its owning descriptor, the
// rendered address, and the label at that script, if any.
type TxoInfo struct {
	Txo        *Txo
	Descriptor *Descriptor
	Address    btcutil.Address
	Label      *Address
}

// Value returns the output amount in satoshis.
func (ti *TxoInfo) Value() int64 {
	return ti.Txo.Value
}

// IsUnspent reports whether the output is still unspent.
func (ti *TxoInfo) IsUnspent() bool {
	return ti.Txo.Unspent()
}

// String renders the joined view in a single line.
func (ti *TxoInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"{ outpoint: %q, value: \"%s\", height: %d, descriptor: %q, index: %d",
		ti.Txo.OutPoint, btcutil.Amount(ti.Txo.Value),
		ti.Txo.Height, ti.Descriptor.Template, ti.Txo.WildcardIdx,
	)
	if ti.Txo.SpendingTxid != nil {
		fmt.Fprintf(&b, ", spent_by: %q", ti.Txo.SpendingTxid)
		fmt.Fprintf(&b, ", spent_height: %d", ti.Txo.SpentHeight)
	}
	if ti.Label != nil {
		fmt.Fprintf(&b, ", address_created_at: %q", ti.Label.Created)
		fmt.Fprintf(&b, ", notes: %q", ti.Label.Notes)
	}
	b.WriteString("}")
	return b.String()
}

// Txo looks up a tracked output and joins it with its descriptor,
// address, and label.  Untracked outpoints fail with ErrTxoNotFound.
// Rendering the address may derive keys and thus mutate the key cache.
func (w *Wallet) Txo(d dongle.Dongle, outpoint wire.OutPoint) (*TxoInfo, error) {
	txo, ok := w.txos[outpoint]
	if !ok {
		return nil, walletError(ErrTxoNotFound, fmt.Sprintf(
			"no tracked txo at %s", outpoint), nil)
	}

	desc := w.descriptors[txo.DescriptorIdx]
	addr, err := desc.Template.Address(
		txo.WildcardIdx, w.keyLookup(d), w.chainParams,
	)
	if err != nil {
		return nil, err
	}

	script, err := w.scriptPubkey(d, txo.DescriptorIdx, txo.WildcardIdx)
	if err != nil {
		return nil, err
	}

	return &TxoInfo{
		Txo:        txo,
		Descriptor: desc,
		Address:    addr,
		Label:      w.addresses[string(script)],
	}, nil
}

// NumTxos returns the number of tracked outputs.
func (w *Wallet) NumTxos() int {
	return len(w.txos)
}

// AllTxos returns the joined view of every tracked output, ordered by
// (height, descriptor index, wildcard index, outpoint).
func (w *Wallet) AllTxos(d dongle.Dongle) ([]*TxoInfo, error) {
	infos := make([]*TxoInfo, 0, len(w.txos))
	for outpoint := range w.txos {
		info, err := w.Txo(d, outpoint)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		a, b := infos[i].Txo, infos[j].Txo
		switch {
		case a.Height != b.Height:
			return a.Height < b.Height
		case a.DescriptorIdx != b.DescriptorIdx:
			return a.DescriptorIdx < b.DescriptorIdx
		case a.WildcardIdx != b.WildcardIdx:
			return a.WildcardIdx < b.WildcardIdx
		case a.OutPoint.Hash != b.OutPoint.Hash:
			return a.OutPoint.Hash.String() < b.OutPoint.Hash.String()
		default:
			return a.OutPoint.Index < b.OutPoint.Index
		}
	})

	return infos, nil
}

// TxosForDescriptor returns the tracked outputs owned by one descriptor.
func (w *Wallet) TxosForDescriptor(descriptorIdx uint32) []*Txo {
	var txos []*Txo
	for _, txo := range w.txos {
		if txo.DescriptorIdx == descriptorIdx {
			txos = append(txos, txo)
		}
	}
	return txos
}

// TxosForDescriptorSlot returns the tracked outputs at one instantiated
// descriptor slot.
func (w *Wallet) TxosForDescriptorSlot(descriptorIdx,
	wildcardIdx uint32) []*Txo {

	var txos []*Txo
	for _, txo := range w.txos {
		if txo.DescriptorIdx == descriptorIdx &&
			txo.WildcardIdx == wildcardIdx {

			txos = append(txos, txo)
		}
	}
	return txos
}

// Balance sums the value of all unspent tracked outputs.
func (w *Wallet) Balance() btcutil.Amount {
	var total btcutil.Amount
	for _, txo := range w.txos {
		if txo.Unspent() {
			total += btcutil.Amount(txo.Value)
		}
	}
	return total
}
