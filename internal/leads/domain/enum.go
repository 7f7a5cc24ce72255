package domain

import "strings"

// enumKey reduces a label to its lookup key: lower case with spaces,
// underscores and hyphens removed, so "Closed_Won" and "closed won" collide.
func enumKey(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
