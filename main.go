package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Per-file failures were already reported line by line.
		if errors.Is(err, errTransfersFailed) {
			os.Exit(1)
		}

		exitOnError(err)
	}
}
