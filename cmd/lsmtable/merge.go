package main

import (
	"fmt"

	"github.com/bsm/lsmtable"
	"github.com/spf13/cobra"
)

func (t *toolT) runMerge(cmd *cobra.Command, args []string) error {
	o, err := t.writerOptions()
	if err != nil {
		return err
	}

	iters := make([]lsmtable.StorageIterator, 0, len(args)-1)
	for _, path := range args[1:] {
		table, err := t.openTable(path)
		if err != nil {
			return err
		}
		defer table.Close()

		iter, err := lsmtable.NewSsTableIterator(table)
		if err != nil {
			return err
		}
		iters = append(iters, iter)
	}

	w := lsmtable.NewSsTableBuilder(o)
	merged := lsmtable.NewMergeIterator(iters)
	n := 0
	for ; merged.IsValid(); n++ {
		if err := w.Add(merged.Key(), merged.Value()); err != nil {
			return err
		}
		if err := merged.Next(); err != nil {
			return err
		}
	}

	table, err := w.Build(t.newID(), nil, args[0])
	if err != nil {
		return err
	}
	defer table.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records, %d blocks, %d bytes\n",
		args[0], n, table.NumBlocks(), table.TableSize())
	return nil
}
