// Package reqwriter writes the optional requirements.txt file listing every
// distinct third-party top-level package name the bundle imports
// (spec.md's SUPPLEMENTED FEATURES: requirements.txt generation).
//
// Standard-library only: sorting and writing a short newline-separated list
// is too small a concern to justify pulling in a dependency-file library
// from the pack (none of the examples parse or emit requirements.txt
// either); see DESIGN.md.
package reqwriter

import (
	"sort"
	"strings"
)

// Names returns the sorted, deduplicated set of third-party top-level
// package names referenced anywhere in the bundle: the keys of thirdParty
// whose value is true.
func Names(thirdParty map[string]bool) []string {
	names := make([]string, 0, len(thirdParty))
	for name, used := range thirdParty {
		if !used {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render formats the requirements.txt contents: one package name per line,
// sorted, terminated by a trailing newline, with no version pins (the
// bundler has no way to know which version was actually installed).
func Render(thirdParty map[string]bool) string {
	names := Names(thirdParty)
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, "\n") + "\n"
}
