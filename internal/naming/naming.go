// Package naming checks player display names before they reach the ledger.
package naming

// Policy is a syntactic name policy. The alphabet is fixed to ASCII letters,
// digits, underscore and hyphen.
type Policy struct {
	MinLength            int
	MaxLength            int
	MaxConsecutiveDigits int
}

// DefaultPolicy allows 3 to 15 characters with at most 4 digits in a row,
// which keeps pasted profile ids out of the name field.
var DefaultPolicy = Policy{
	MinLength:            3,
	MaxLength:            15,
	MaxConsecutiveDigits: 4,
}

// ValidateName checks candidate against DefaultPolicy.
func ValidateName(candidate string) bool {
	return DefaultPolicy.Valid(candidate)
}

// Valid reports whether candidate satisfies the policy. Input is taken as is;
// callers trim it first.
func (p Policy) Valid(candidate string) bool {
	// bytes, not runes: anything outside ASCII fails the alphabet check anyway
	if len(candidate) < p.MinLength || len(candidate) > p.MaxLength {
		return false
	}
	run := 0
	for i := 0; i < len(candidate); i++ {
		ch := candidate[i]
		switch {
		case ch >= '0' && ch <= '9':
			run++
			if p.MaxConsecutiveDigits >= 0 && run > p.MaxConsecutiveDigits {
				return false
			}
			continue
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_', ch == '-':
		default:
			return false
		}
		run = 0
	}
	return true
}
