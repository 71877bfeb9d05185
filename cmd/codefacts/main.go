package main

import (
	"fmt"
	"os"

	cferrors "codefacts/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for caller mistakes and 1 for everything else.
func exitCode(err error) int {
	if cferrors.IsInvalid(err) {
		return 2
	}
	return 1
}
