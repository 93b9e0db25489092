// Package wallet implements the persistent state store of a
// hardware-backed wallet: registered descriptors, labeled addresses,
// tracked outputs, and the memoized key-derivation cache, together with
// the encrypted on-disk persistence of all of it.
//
// The package is single-owner and synchronous.  There is no internal
// locking: any operation that instantiates a descriptor, including
// read-like queries such as Txo and ScriptPubkeyCache, can mutate the
// shared key cache and must be treated as potentially mutating.
package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/neutrino/cache/lru"

	"github.com/icetray-wallet/icetray/descriptor"
	"github.com/icetray-wallet/icetray/dongle"
)

// scriptCacheSize is the capacity, in entries, of the
// instantiated-script cache.
const scriptCacheSize = 25000

// Descriptor is one registered spending-policy template together with
// its declared instantiation range.  Descriptors are append-only; only
// NextIdx ever changes after registration, and it never decreases.
type Descriptor struct {
	// Template is the underlying policy template.
	Template *descriptor.Descriptor

	// Low is the first (inclusive) wildcard index to instantiate.
	Low uint32

	// High is the last (exclusive) wildcard index to instantiate.
	High uint32

	// NextIdx is the next unused index for address auto-allocation.
	NextIdx uint32
}

// scriptKey identifies one instantiated descriptor slot.
type scriptKey struct {
	descriptorIdx uint32
	wildcardIdx   uint32
}

// cachedScript is an lru cache entry holding one instantiated script.
type cachedScript struct {
	script []byte
}

// Size returns a unit cost per entry.
func (c *cachedScript) Size() (uint64, error) {
	return 1, nil
}

// Wallet is the aggregate wallet state.
type Wallet struct {
	// BlockHeight is the last height the wallet considers confirmed
	// and will not rescan.
	BlockHeight uint64

	descriptors []*Descriptor
	addresses   map[string]*Address
	txos        map[wire.OutPoint]*Txo
	keyCache    *KeyCache

	// scriptCache memoizes instantiated scripts so repeated lookups
	// skip the EC math.  Unlike the key cache it is purely a CPU
	// saver: evicted entries are recomputed without device traffic.
	scriptCache *lru.Cache[scriptKey, *cachedScript]

	chainParams *chaincfg.Params
}

// New constructs an empty wallet.
func New(params *chaincfg.Params) *Wallet {
	return &Wallet{
		addresses:   make(map[string]*Address),
		txos:        make(map[wire.OutPoint]*Txo),
		keyCache:    NewKeyCache(),
		scriptCache: lru.NewCache[scriptKey, *cachedScript](scriptCacheSize),
		chainParams: params,
	}
}

// ChainParams returns the network the wallet addresses render for.
func (w *Wallet) ChainParams() *chaincfg.Params {
	return w.chainParams
}

// KeyCache exposes the wallet's derivation cache.
func (w *Wallet) KeyCache() *KeyCache {
	return w.keyCache
}

// keyLookup adapts the key cache to the descriptor instantiation
// interface.  Resolutions may contact the device and mutate the cache.
func (w *Wallet) keyLookup(d dongle.Dongle) descriptor.KeyLookup {
	return func(key *descriptor.Key,
		index uint32) (*btcec.PublicKey, error) {

		return w.keyCache.GetOrDerive(d, key, index)
	}
}

// scriptPubkey instantiates the script for one descriptor slot, going
// through the script cache first and warming the key cache on the way.
func (w *Wallet) scriptPubkey(d dongle.Dongle, descriptorIdx uint32,
	index uint32) ([]byte, error) {

	key := scriptKey{descriptorIdx: descriptorIdx, wildcardIdx: index}
	if entry, err := w.scriptCache.Get(key); err == nil {
		return entry.script, nil
	}

	desc := w.descriptors[descriptorIdx]
	script, err := desc.Template.ScriptPubkey(
		index, w.keyLookup(d), w.chainParams,
	)
	if err != nil {
		return nil, err
	}
	_, _ = w.scriptCache.Put(key, &cachedScript{script: script})

	return script, nil
}

// Descriptors returns the wallet's descriptor list in registration
// order.  The returned slice must not be modified.
func (w *Wallet) Descriptors() []*Descriptor {
	return w.descriptors
}

// Descriptor returns the descriptor at the given index.
func (w *Wallet) Descriptor(idx uint32) (*Descriptor, error) {
	if int(idx) >= len(w.descriptors) {
		return nil, walletError(ErrDescriptorIndex, fmt.Sprintf(
			"descriptor index %d out of range (have %d)",
			idx, len(w.descriptors)), nil)
	}
	return w.descriptors[idx], nil
}

// AddDescriptor registers a new descriptor over the wildcard index range
// [low, high) and eagerly derives a key for every index not already
// covered by an identical template, warming the key cache for each
// newly-declared slot.  It returns the number of indices actually newly
// derived, which is less than high-low when ranges overlap.
//
// Registering an exact duplicate of an existing (template, low, high)
// triple fails with ErrDuplicateDescriptor before any mutation.  The
// operation is otherwise not transactional: if derivation fails partway,
// keys already derived stay cached and no descriptor is appended.
// Device failures during derivation propagate unchanged.
func (w *Wallet) AddDescriptor(d dongle.Dongle,
	tmpl *descriptor.Descriptor, low, high uint32) (int, error) {

	covered := make(map[uint32]struct{})
	for _, existing := range w.descriptors {
		if !existing.Template.Equal(tmpl) {
			continue
		}
		if existing.Low == low && existing.High == high {
			return 0, walletError(ErrDuplicateDescriptor,
				fmt.Sprintf("descriptor %s already registered "+
					"over [%d,%d)", tmpl, low, high), nil)
		}
		for i := existing.Low; i < existing.High; i++ {
			covered[i] = struct{}{}
		}
	}

	// Derivation runs before the append so a failure leaves the
	// descriptor list, and anything keyed by descriptor index, exactly
	// as it was.  The script cache is warmed lazily later.
	added := 0
	for i := low; i < high; i++ {
		if _, ok := covered[i]; ok {
			continue
		}
		_, err := tmpl.ScriptPubkey(i, w.keyLookup(d), w.chainParams)
		if err != nil {
			return 0, err
		}
		added++
	}

	descriptorIdx := uint32(len(w.descriptors))
	w.descriptors = append(w.descriptors, &Descriptor{
		Template: tmpl,
		Low:      low,
		High:     high,
		NextIdx:  0,
	})

	log.Infof("Registered descriptor %d over [%d,%d), %d new keys",
		descriptorIdx, low, high, added)

	return added, nil
}

// AddressInfo is the joined view returned by AddAddress: the label data
// combined with the rendered address and any txos already tracked at
// that slot.
type AddressInfo struct {
	DescriptorIdx uint32
	WildcardIdx   uint32
	Address       btcutil.Address
	Created       string
	Notes         string
	Txos          []*Txo
}

// AddAddress labels one instantiated descriptor slot.  With wildcardIdx
// nil the descriptor's NextIdx is used and advanced (auto-allocation).
// An explicit index always bumps NextIdx to at least one past it, so a
// manual allocation can never be handed out again automatically.
//
// Inserting at a script that already carries a label overwrites it.
func (w *Wallet) AddAddress(d dongle.Dongle, descriptorIdx uint32,
	wildcardIdx *uint32, created, notes string) (*AddressInfo, error) {

	desc, err := w.Descriptor(descriptorIdx)
	if err != nil {
		return nil, err
	}

	var widx uint32
	if wildcardIdx == nil {
		widx = desc.NextIdx
	} else {
		widx = *wildcardIdx
	}
	if widx+1 > desc.NextIdx {
		desc.NextIdx = widx + 1
	}

	script, err := w.scriptPubkey(d, descriptorIdx, widx)
	if err != nil {
		return nil, err
	}

	addr := &Address{
		DescriptorIdx: descriptorIdx,
		WildcardIdx:   widx,
		Created:       created,
		Notes:         notes,
	}
	w.addresses[string(script)] = addr

	rendered, err := desc.Template.Address(
		widx, w.keyLookup(d), w.chainParams,
	)
	if err != nil {
		return nil, err
	}

	log.Debugf("Labeled address %v (descriptor %d index %d)",
		rendered, descriptorIdx, widx)

	return &AddressInfo{
		DescriptorIdx: descriptorIdx,
		WildcardIdx:   widx,
		Address:       rendered,
		Created:       created,
		Notes:         notes,
		Txos:          w.TxosForDescriptorSlot(descriptorIdx, widx),
	}, nil
}

// NumAddresses returns the number of labeled addresses.
func (w *Wallet) NumAddresses() int {
	return len(w.addresses)
}

// ForEachAddress visits every labeled address keyed by its output
// script, in unspecified order.
func (w *Wallet) ForEachAddress(f func(script []byte, addr *Address) error) error {
	for script, addr := range w.addresses {
		if err := f([]byte(script), addr); err != nil {
			return err
		}
	}
	return nil
}
