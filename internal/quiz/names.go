package quiz

import "github.com/jkubale/namerecall/internal/match"

// NormalizeName normalizes answers and person names before comparison so
// "jiri  novak" matches "Jiří Novák".
func NormalizeName(name string) string {
	return match.NormalizeName(name)
}
