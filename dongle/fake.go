package dongle

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/icetray-wallet/icetray/descriptor"
)

// ErrRefused mimics a user declining an on-device confirmation.
var ErrRefused = errors.New("dongle: request refused on device")

// Fake is a deterministic software stand-in for a hardware device.  It
// derives keys from a fixed seed with plain BIP32 and records every
// request, which lets tests assert that the engine's memoization keeps
// device round-trips to the promised minimum.
type Fake struct {
	master *hdkeychain.ExtendedKey

	// KeyRequests counts PublicKey calls per path.
	KeyRequests map[string]int

	// DisplayRequests counts PublicKey calls that asked for on-device
	// display.
	DisplayRequests int

	// Err, when set, is returned by every call.  It simulates an
	// unreachable device or a declined confirmation.
	Err error
}

// NewFake builds a fake device from a seed.
func NewFake(seed []byte, params *chaincfg.Params) (*Fake, error) {
	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, err
	}
	return &Fake{
		master:      master,
		KeyRequests: make(map[string]int),
	}, nil
}

// TotalKeyRequests returns the number of PublicKey calls the fake has
// served across all paths.
func (f *Fake) TotalKeyRequests() int {
	total := 0
	for _, n := range f.KeyRequests {
		total += n
	}
	return total
}

// MasterXpub returns the neutered master key.
func (f *Fake) MasterXpub() (*hdkeychain.ExtendedKey, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.master.Neuter()
}

// PublicKey derives the key at path from the fake's seed.
func (f *Fake) PublicKey(path descriptor.DerivationPath,
	display bool) (*KeyInfo, error) {

	if f.Err != nil {
		return nil, f.Err
	}

	f.KeyRequests[path.String()]++
	if display {
		f.DisplayRequests++
	}

	key := f.master
	for _, child := range path {
		var err error
		key, err = key.Derive(child)
		if err != nil {
			return nil, err
		}
	}

	pub, err := key.ECPubKey()
	if err != nil {
		return nil, err
	}
	info := &KeyInfo{PublicKey: pub}
	copy(info.ChainCode[:], key.ChainCode())
	return info, nil
}

// WalletPublicKey resolves a descriptor key at one wildcard index.
func (f *Fake) WalletPublicKey(key *descriptor.Key,
	index uint32) (*btcec.PublicKey, error) {

	info, err := f.PublicKey(key.PathAt(index), false)
	if err != nil {
		return nil, err
	}
	return info.PublicKey, nil
}
