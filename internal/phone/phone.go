// Package phone canonicalizes customer phone numbers. Historical rows were
// written both with and without a leading "+" and with assorted separators,
// so every lookup and write funnels through Normalize first. LookupForms
// exists only as a migration-compatibility shim for stores that still hold
// unnormalized rows.
package phone

import "strings"

// Normalize strips the leading "+" and every non-digit separator, leaving
// bare digits. Normalize is idempotent.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LookupForms returns the candidate formats to try against a store that may
// hold unnormalized historical rows: the number as given, then the bare
// normalized form, then the "+"-prefixed form. Duplicates are dropped.
func LookupForms(raw string) []string {
	norm := Normalize(raw)
	forms := []string{strings.TrimSpace(raw), norm}
	if norm != "" {
		forms = append(forms, "+"+norm)
	}

	seen := make(map[string]struct{}, len(forms))
	out := forms[:0]
	for _, f := range forms {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
