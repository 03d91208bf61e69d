package password

import (
	"strconv"
	"strings"
)

const (
	MsgTooShort      = "Password must be at least 8 characters"
	MsgNeedUppercase = "Password must contain at least one uppercase letter"
	MsgNeedLowercase = "Password must contain at least one lowercase letter"
	MsgNeedDigit     = "Password must contain at least one number"
	MsgNeedSymbol    = "Password must contain at least one special character"
)

// DefaultSymbols is the punctuation set accepted as a "special character".
const DefaultSymbols = "!@#$%^&*"

// Policy is the composite strength rule applied to new passwords.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	Symbols       string
}

// DefaultPolicy: at least 8 characters with an uppercase letter, a digit and
// one of DefaultSymbols.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:     8,
		RequireUpper:  true,
		RequireDigit:  true,
		RequireSymbol: true,
		Symbols:       DefaultSymbols,
	}
}

// Check returns every rule pw violates, in a stable order, so a form can
// highlight all of them at once. A nil result means pw is acceptable.
func (p Policy) Check(pw string) []string {
	var reasons []string

	if len(pw) < p.MinLength {
		reasons = append(reasons, tooShortMessage(p.MinLength))
	}

	var upper, lower, digit, symbol bool
	symbols := p.Symbols
	if symbols == "" {
		symbols = DefaultSymbols
	}
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(symbols, r):
			symbol = true
		}
	}

	if p.RequireUpper && !upper {
		reasons = append(reasons, MsgNeedUppercase)
	}
	if p.RequireLower && !lower {
		reasons = append(reasons, MsgNeedLowercase)
	}
	if p.RequireDigit && !digit {
		reasons = append(reasons, MsgNeedDigit)
	}
	if p.RequireSymbol && !symbol {
		reasons = append(reasons, MsgNeedSymbol)
	}

	return reasons
}

func tooShortMessage(n int) string {
	if n == 8 {
		return MsgTooShort
	}
	return "Password must be at least " + strconv.Itoa(n) + " characters"
}
