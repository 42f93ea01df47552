package cryptox

// Wipe zeroes b so a password read from the terminal does not linger in
// memory. A nil slice is a no-op.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
