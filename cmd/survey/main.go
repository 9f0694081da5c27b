// Command survey works with questionnaire export files offline: it prints the
// flat export header, converts structured exports to flat CSV, merges an
// AS IS and a TO BE export into the dual-mode layout and scores flat exports.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
