package descriptor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// HardenedKeyStart is the child index at which hardened derivation
// begins.  The hardened bit is folded into the path element itself.
const HardenedKeyStart uint32 = hdkeychain.HardenedKeyStart

// DerivationPath is the sequence of child indices identifying one key
// within a hierarchical key tree, root first.
type DerivationPath []uint32

// String returns the conventional textual form of the path, e.g.
// "m/44h/0h/0h/2h/5h".
func (p DerivationPath) String() string {
	var b strings.Builder
	b.WriteByte('m')
	for _, child := range p {
		b.WriteByte('/')
		if child >= HardenedKeyStart {
			b.WriteString(strconv.FormatUint(
				uint64(child-HardenedKeyStart), 10))
			b.WriteByte('h')
		} else {
			b.WriteString(strconv.FormatUint(uint64(child), 10))
		}
	}
	return b.String()
}

// Extend returns a new path with one more child appended.  The receiver
// is never modified.
func (p DerivationPath) Extend(child uint32) DerivationPath {
	out := make(DerivationPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, child)
}

// parseChild parses one path element such as "44", "44h" or "44'".
func parseChild(s string) (uint32, error) {
	hardened := false
	if strings.HasSuffix(s, "h") || strings.HasSuffix(s, "'") ||
		strings.HasSuffix(s, "H") {

		hardened = true
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n >= uint64(HardenedKeyStart) {
		return 0, fmt.Errorf("invalid path element %q", s)
	}
	child := uint32(n)
	if hardened {
		child += HardenedKeyStart
	}
	return child, nil
}

// ParseDerivationPath parses the textual form produced by String.  The
// leading "m" element is optional.
func ParseDerivationPath(s string) (DerivationPath, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 0 && (parts[0] == "m" || parts[0] == "M") {
		parts = parts[1:]
	}
	path := make(DerivationPath, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("empty element in path %q", s)
		}
		child, err := parseChild(part)
		if err != nil {
			return nil, err
		}
		path = append(path, child)
	}
	return path, nil
}
