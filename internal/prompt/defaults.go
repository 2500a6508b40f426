package prompt

import (
	_ "embed"
)

//go:embed prompts/defaults.yaml
var defaultLibraryYAML []byte

// DefaultLibrary returns the experiment library embedded in the binary. It is
// used whenever no prompt library file is configured.
func DefaultLibrary() (*Library, error) {
	return ParseLibrary("embedded defaults", defaultLibraryYAML)
}
