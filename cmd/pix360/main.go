package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd, cleanup := newRootCommand()
	err := cmd.Execute()
	cleanup()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
