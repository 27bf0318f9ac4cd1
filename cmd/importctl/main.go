// Command importctl runs the import pipeline against local CSV files without
// a database: detect a mapping, transform rows and check duplicates.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
