// Package dongle defines the capability surface of the hardware signing
// authority.  The engine only ever consumes public-key derivation; private
// key material stays on the device and never crosses this interface.
//
// Calls block for however long the device takes, which may include
// waiting for an on-device user confirmation.  No retry or timeout policy
// is applied here; failures propagate unchanged to the caller.
package dongle

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/icetray-wallet/icetray/descriptor"
)

// KeyInfo is the device's answer to a public-key request.
type KeyInfo struct {
	PublicKey *btcec.PublicKey
	ChainCode [32]byte
}

// Dongle is the hardware signing authority.
type Dongle interface {
	// MasterXpub returns the device's master extended public key.
	MasterXpub() (*hdkeychain.ExtendedKey, error)

	// PublicKey derives the public key at the given path.  When
	// display is set the device shows the corresponding address on
	// its screen and waits for user confirmation.
	PublicKey(path descriptor.DerivationPath,
		display bool) (*KeyInfo, error)

	// WalletPublicKey resolves a descriptor key expression at one
	// wildcard index.  It is the device-side half of descriptor
	// translation and is equivalent to PublicKey over key.PathAt.
	WalletPublicKey(key *descriptor.Key,
		index uint32) (*btcec.PublicKey, error)
}
