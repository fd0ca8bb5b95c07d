package mirror

import "strings"

// BreedSummary flattens the breed structure into one space separated string.
// An entry with several sub-tags contributes all of them in source order; an
// entry with one tag contributes that tag.
func BreedSummary(breeds [][]string) string {
	var b strings.Builder
	for _, entry := range breeds {
		if len(entry) > 1 {
			for _, sub := range entry {
				b.WriteString(sub)
				b.WriteByte(' ')
			}
			continue
		}
		if len(entry) == 1 {
			b.WriteString(entry[0])
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}
