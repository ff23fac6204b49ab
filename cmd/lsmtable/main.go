package main

import (
	"fmt"
	"log"
	"os"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	t := newTool(vfs.Default)
	if err := t.Root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
