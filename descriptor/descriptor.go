// Package descriptor models the spending-policy templates tracked by the
// wallet.  A template is a closed set of single-key script families over
// one wildcard key; it round-trips through a canonical textual form for
// on-disk compatibility and instantiates to a concrete output script once
// the wildcard is resolved to a public key.
//
// Key material never lives here: instantiation resolves the wildcard
// through a caller-supplied lookup, which in practice is the wallet's key
// cache backed by the hardware signing authority.
package descriptor

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// ScriptKind enumerates the supported script families.
type ScriptKind uint8

const (
	// Pkh is a legacy pay-to-pubkey-hash output.
	Pkh ScriptKind = iota

	// Wpkh is a native segwit pay-to-witness-pubkey-hash output.
	Wpkh

	// ShWpkh is a pay-to-witness-pubkey-hash output nested in p2sh.
	ShWpkh
)

// KeyLookup resolves a wildcard key expression at one index to a public
// key.  Implementations may block on a hardware device and may mutate
// shared cache state.
type KeyLookup func(key *Key, index uint32) (*btcec.PublicKey, error)

// Key is a wildcard key expression: an optional key origin, an extended
// public key identifying the key tree, a fixed derivation prefix, and
// one trailing wildcard element.
type Key struct {
	// origin is the bracketed key-origin text, without brackets,
	// carried verbatim through the textual round trip.
	origin string

	xpub             *hdkeychain.ExtendedKey
	xpubStr          string
	prefix           DerivationPath
	hardenedWildcard bool
}

// Xpub returns the extended public key the expression is rooted at.
func (k *Key) Xpub() *hdkeychain.ExtendedKey {
	return k.xpub
}

// PathAt returns the concrete derivation path selecting the key at the
// given wildcard index.
func (k *Key) PathAt(index uint32) DerivationPath {
	child := index
	if k.hardenedWildcard {
		child += HardenedKeyStart
	}
	return k.prefix.Extend(child)
}

// String returns the canonical textual form of the key expression.
func (k *Key) String() string {
	var b strings.Builder
	if k.origin != "" {
		b.WriteByte('[')
		b.WriteString(k.origin)
		b.WriteByte(']')
	}
	b.WriteString(k.xpubStr)
	for _, child := range k.prefix {
		b.WriteByte('/')
		if child >= HardenedKeyStart {
			fmt.Fprintf(&b, "%dh", child-HardenedKeyStart)
		} else {
			fmt.Fprintf(&b, "%d", child)
		}
	}
	b.WriteString("/*")
	if k.hardenedWildcard {
		b.WriteByte('h')
	}
	return b.String()
}

func parseKey(s string) (*Key, error) {
	var origin string
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return nil, fmt.Errorf("unterminated key origin in %q", s)
		}
		origin = s[1:end]
		s = s[end+1:]
	}

	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return nil, fmt.Errorf("key expression %q has no wildcard", s)
	}

	xpub, err := hdkeychain.NewKeyFromString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid extended key in %q: %v", s, err)
	}
	if xpub.IsPrivate() {
		return nil, fmt.Errorf("private extended key in descriptor")
	}

	key := &Key{origin: origin, xpub: xpub, xpubStr: parts[0]}

	steps := parts[1:]
	wildcard := steps[len(steps)-1]
	steps = steps[:len(steps)-1]

	switch wildcard {
	case "*":
	case "*h", "*'", "*H":
		key.hardenedWildcard = true
	default:
		return nil, fmt.Errorf("key expression %q must end in a "+
			"wildcard element", s)
	}

	key.prefix = make(DerivationPath, 0, len(steps))
	for _, step := range steps {
		child, err := parseChild(step)
		if err != nil {
			return nil, err
		}
		key.prefix = append(key.prefix, child)
	}

	return key, nil
}

// Descriptor is one registered spending-policy template.
type Descriptor struct {
	kind ScriptKind
	key  Key
}

// Parse parses the canonical textual form of a descriptor.  A trailing
// "#checksum" suffix is accepted and ignored.
func Parse(s string) (*Descriptor, error) {
	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	var (
		kind    ScriptKind
		keyExpr string
	)
	switch {
	case strings.HasPrefix(s, "sh(wpkh(") && strings.HasSuffix(s, "))"):
		kind = ShWpkh
		keyExpr = s[len("sh(wpkh(") : len(s)-2]

	case strings.HasPrefix(s, "wpkh(") && strings.HasSuffix(s, ")"):
		kind = Wpkh
		keyExpr = s[len("wpkh(") : len(s)-1]

	case strings.HasPrefix(s, "pkh(") && strings.HasSuffix(s, ")"):
		kind = Pkh
		keyExpr = s[len("pkh(") : len(s)-1]

	default:
		return nil, fmt.Errorf("unsupported descriptor %q", s)
	}

	key, err := parseKey(keyExpr)
	if err != nil {
		return nil, err
	}
	return &Descriptor{kind: kind, key: *key}, nil
}

// Kind returns the script family of the descriptor.
func (d *Descriptor) Kind() ScriptKind {
	return d.kind
}

// Key returns the descriptor's wildcard key expression.
func (d *Descriptor) Key() *Key {
	return &d.key
}

// String returns the canonical textual form, which Parse round-trips.
func (d *Descriptor) String() string {
	switch d.kind {
	case Wpkh:
		return fmt.Sprintf("wpkh(%s)", d.key.String())
	case ShWpkh:
		return fmt.Sprintf("sh(wpkh(%s))", d.key.String())
	default:
		return fmt.Sprintf("pkh(%s)", d.key.String())
	}
}

// Equal reports whether two descriptors denote the same template.
func (d *Descriptor) Equal(other *Descriptor) bool {
	return other != nil && d.String() == other.String()
}

// PathAt returns the derivation path selecting the template's key at the
// given wildcard index.
func (d *Descriptor) PathAt(index uint32) DerivationPath {
	return d.key.PathAt(index)
}

// address computes the instantiated address for an already-resolved key.
func (d *Descriptor) address(pub *btcec.PublicKey,
	params *chaincfg.Params) (btcutil.Address, error) {

	pkHash := btcutil.Hash160(pub.SerializeCompressed())
	switch d.kind {
	case Wpkh:
		return btcutil.NewAddressWitnessPubKeyHash(pkHash, params)

	case ShWpkh:
		witAddr, err := btcutil.NewAddressWitnessPubKeyHash(
			pkHash, params,
		)
		if err != nil {
			return nil, err
		}
		witScript, err := txscript.PayToAddrScript(witAddr)
		if err != nil {
			return nil, err
		}
		return btcutil.NewAddressScriptHash(witScript, params)

	default:
		return btcutil.NewAddressPubKeyHash(pkHash, params)
	}
}

// Address instantiates the descriptor at the given wildcard index and
// returns the corresponding address.  Range enforcement is the caller's
// responsibility; the lookup may block on a hardware device.
func (d *Descriptor) Address(index uint32, lookup KeyLookup,
	params *chaincfg.Params) (btcutil.Address, error) {

	pub, err := lookup(&d.key, index)
	if err != nil {
		return nil, err
	}
	return d.address(pub, params)
}

// ScriptPubkey instantiates the descriptor at the given wildcard index
// and returns the output-locking script.
func (d *Descriptor) ScriptPubkey(index uint32, lookup KeyLookup,
	params *chaincfg.Params) ([]byte, error) {

	addr, err := d.Address(index, lookup, params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}
