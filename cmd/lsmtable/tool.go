package main

import (
	"sync/atomic"

	"github.com/bsm/lsmtable"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/spf13/cobra"
)

// toolT holds the configuration and state shared by all commands.
type toolT struct {
	Root   *cobra.Command
	Gen    *cobra.Command
	Scan   *cobra.Command
	Get    *cobra.Command
	Layout *cobra.Command
	Check  *cobra.Command
	Merge  *cobra.Command
	Bench  *cobra.Command

	opts   lsmtable.Options
	cache  *lsmtable.BlockCache
	nextID uint64

	// Flags.
	count       int
	blockSize   int
	compression string
	start       string
	limit       int
	verbose     bool
	concurrency int
	seeks       int
}

func newTool(fs vfs.FS) *toolT {
	t := &toolT{
		opts: lsmtable.Options{
			FS:     fs,
			Logger: lsmtable.NoopLogger{},
		},
		cache: lsmtable.NewBlockCache(64 << 20 /* 64 MB */),
	}

	t.Root = &cobra.Command{
		Use:           "lsmtable [command] (flags)",
		Short:         "lsmtable introspection tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	t.Gen = &cobra.Command{
		Use:   "gen <table>",
		Short: "generate a table of random records",
		Long: `
Generate a table with random uuid keys and fake values. Keys are sorted before
they are added, duplicates are dropped.
`,
		Args: cobra.ExactArgs(1),
		RunE: t.runGen,
	}
	t.Scan = &cobra.Command{
		Use:   "scan <table>",
		Short: "print table records",
		Args:  cobra.ExactArgs(1),
		RunE:  t.runScan,
	}
	t.Get = &cobra.Command{
		Use:   "get <table> <key>",
		Short: "print the value of a single key",
		Args:  cobra.ExactArgs(2),
		RunE:  t.runGet,
	}
	t.Layout = &cobra.Command{
		Use:   "layout <table>",
		Short: "print table block layout",
		Long: `
Print the block layout of a table. The -v flag additionally dumps the raw block
metadata.
`,
		Args: cobra.ExactArgs(1),
		RunE: t.runLayout,
	}
	t.Check = &cobra.Command{
		Use:   "check <tables>",
		Short: "verify checksums and key ordering",
		Args:  cobra.MinimumNArgs(1),
		RunE:  t.runCheck,
	}
	t.Merge = &cobra.Command{
		Use:   "merge <out> <tables>",
		Short: "merge tables into a new one",
		Long: `
Merge the input tables into a new table. When a key is present in more than one
input, the value of the input listed first wins.
`,
		Args: cobra.MinimumNArgs(2),
		RunE: t.runMerge,
	}
	t.Bench = &cobra.Command{
		Use:   "bench <table>",
		Short: "measure random point lookups",
		Args:  cobra.ExactArgs(1),
		RunE:  t.runBench,
	}

	t.Root.AddCommand(t.Gen, t.Scan, t.Get, t.Layout, t.Check, t.Merge, t.Bench)

	for _, cmd := range []*cobra.Command{t.Gen, t.Merge} {
		cmd.Flags().IntVar(
			&t.blockSize, "block-size", 4096, "target block size in bytes")
		cmd.Flags().StringVar(
			&t.compression, "compression", "none", "block compression (none, snappy, zstd, minlz)")
	}
	t.Gen.Flags().IntVarP(
		&t.count, "count", "n", 1000, "number of records to generate")

	t.Scan.Flags().StringVar(
		&t.start, "start", "", "start key for the scan")
	t.Scan.Flags().IntVar(
		&t.limit, "limit", 0, "maximum number of records to print (0 means unlimited)")

	t.Layout.Flags().BoolVarP(
		&t.verbose, "verbose", "v", false, "verbose output")

	for _, cmd := range []*cobra.Command{t.Check, t.Bench} {
		cmd.Flags().IntVarP(
			&t.concurrency, "concurrency", "c", 4, "number of concurrent workers")
	}
	t.Bench.Flags().IntVar(
		&t.seeks, "seeks", 10000, "number of lookups per worker")

	return t
}

// openTable opens the table at path with a unique id.
func (t *toolT) openTable(path string) (*lsmtable.SsTable, error) {
	file, err := lsmtable.OpenFile(t.opts.FS, path)
	if err != nil {
		return nil, err
	}
	table, err := lsmtable.OpenTable(t.newID(), t.cache, file, &t.opts)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return table, nil
}

func (t *toolT) newID() uint64 {
	return atomic.AddUint64(&t.nextID, 1)
}

func (t *toolT) writerOptions() (*lsmtable.Options, error) {
	c, err := lsmtable.ParseCompression(t.compression)
	if err != nil {
		return nil, err
	}
	o := t.opts
	o.BlockSize = t.blockSize
	o.Compression = c
	return &o, nil
}
