package domain

// Signers is the set of principals whose signatures were verified for the
// current operation.
type Signers []Identity

// Has reports whether id signed.
func (s Signers) Has(id Identity) bool {
	for _, signer := range s {
		if signer == id {
			return true
		}
	}
	return false
}
