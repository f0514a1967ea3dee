package main

import (
	"fmt"
	"os"

	"github.com/civiclearn/game-engine/pkg/manifest"
)

// Manifest lint for content authors. Prints every violation in a document,
// not just the first, so a manifest can be fixed in one pass.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <manifest.json> [manifest.json ...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		if err := validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	m, verrs := manifest.Parse(data)
	if verrs != nil {
		fmt.Fprintf(os.Stderr, "Validation errors in %s:\n", filename)
		for _, ve := range verrs {
			fmt.Fprintf(os.Stderr, "  - %s\n", ve.Error())
		}
		return fmt.Errorf("%s: %d violation(s)", filename, len(verrs))
	}

	fmt.Printf("%s is valid: game %q, %d scenes, start at %q\n",
		filename, m.GameID, len(m.Scenes), m.StartScene)
	return nil
}
