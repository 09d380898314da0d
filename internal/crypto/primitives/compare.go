package primitives

import "crypto/subtle"

// ConstantTimeEqual reports whether a and b hold the same bytes, in time
// independent of where they first differ. Used for any comparison touching
// secret-derived material; the AEAD tag check itself already does this
// internally, so this is for auxiliary comparisons only.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
