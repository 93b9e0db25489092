// Package zero provides helpers to clear sensitive byte buffers.
package zero

// Bytes sets every byte of the slice to zero.
func Bytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Bytea32 sets every byte of the array to zero.
func Bytea32(b *[32]byte) {
	*b = [32]byte{}
}
