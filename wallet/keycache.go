package wallet

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/icetray-wallet/icetray/descriptor"
	"github.com/icetray-wallet/icetray/dongle"
)

// cachedPub is one memoized derivation result.
type cachedPub struct {
	path descriptor.DerivationPath
	pub  *btcec.PublicKey
}

// KeyCache memoizes public keys by derivation path.  Each distinct path
// costs at most one authority round-trip for the lifetime of the wallet;
// this is the engine's central cost control, since a round-trip is slow
// and may require interactive confirmation on the device.
//
// Entries are never evicted.  They are small, and the number of distinct
// indices a wallet will realistically touch is bounded by the import-time
// guard of 2^31 indices.
type KeyCache struct {
	keys map[string]cachedPub
}

// NewKeyCache constructs an empty cache.
func NewKeyCache() *KeyCache {
	return &KeyCache{keys: make(map[string]cachedPub)}
}

// Len returns the number of cached keys.
func (kc *KeyCache) Len() int {
	return len(kc.keys)
}

// GetOrDerive returns the public key for a wildcard key expression at
// one index, resolving it through the authority's wallet-scoped lookup
// on a cache miss.  On a hit the device is not contacted at all.  The
// cache is mutated on miss, so any operation reaching this point must be
// treated as potentially mutating, even read-like queries.
func (kc *KeyCache) GetOrDerive(d dongle.Dongle, key *descriptor.Key,
	index uint32) (*btcec.PublicKey, error) {

	path := key.PathAt(index)
	pathStr := path.String()
	if entry, ok := kc.keys[pathStr]; ok {
		return entry.pub, nil
	}

	pub, err := d.WalletPublicKey(key, index)
	if err != nil {
		return nil, err
	}
	kc.keys[pathStr] = cachedPub{path: path, pub: pub}

	log.Debugf("Cached key for path %s (%d cached total)",
		pathStr, len(kc.keys))

	return pub, nil
}

// put installs an entry directly, bypassing derivation.  Used when the
// cache is restored from disk.
func (kc *KeyCache) put(path descriptor.DerivationPath,
	pub *btcec.PublicKey) {

	kc.keys[path.String()] = cachedPub{path: path, pub: pub}
}

// forEach visits every cached entry in unspecified order.
func (kc *KeyCache) forEach(f func(descriptor.DerivationPath,
	*btcec.PublicKey) error) error {

	for _, entry := range kc.keys {
		if err := f(entry.path, entry.pub); err != nil {
			return err
		}
	}
	return nil
}
