package main

import "fmt"

// iecSuffixes are the §6 "-m" suffixes: a literal space for plain bytes,
// then K, M, G, T, P, E, Z, Y for each successive power of 1024.
var iecSuffixes = [...]byte{' ', 'K', 'M', 'G', 'T', 'P', 'E', 'Z', 'Y'}

// formatSizeIEC renders n using the exact 1024-based scheme §6 specifies.
// No library in the example pack emits this suffix set (go-humanize uses
// "KiB"/"kB"), so this one formatter is hand-written; see DESIGN.md.
func formatSizeIEC(n uint64) string {
	value := float64(n)
	i := 0
	for value >= 1024 && i < len(iecSuffixes)-1 {
		value /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d%c", n, iecSuffixes[0])
	}
	return fmt.Sprintf("%.1f%c", value, iecSuffixes[i])
}
