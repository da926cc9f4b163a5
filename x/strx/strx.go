// Package strx has the string helpers shared by firmware and host code.
package strx

// Coalesce returns the first non-empty string, or "" if all are empty.
func Coalesce(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
