package main

import (
	"fmt"

	"github.com/bsm/lsmtable"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func (t *toolT) runScan(cmd *cobra.Command, args []string) error {
	table, err := t.openTable(args[0])
	if err != nil {
		return err
	}
	defer table.Close()

	var iter *lsmtable.SsTableIterator
	if t.start != "" {
		iter, err = lsmtable.NewSsTableIteratorAt(table, lsmtable.KeySlice(t.start))
	} else {
		iter, err = lsmtable.NewSsTableIterator(table)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for n := 0; iter.IsValid(); n++ {
		if t.limit > 0 && n >= t.limit {
			break
		}
		fmt.Fprintf(out, "%s %s\n", iter.Key(), iter.Value())
		if err := iter.Next(); err != nil {
			return err
		}
	}
	return nil
}

func (t *toolT) runGet(cmd *cobra.Command, args []string) error {
	table, err := t.openTable(args[0])
	if err != nil {
		return err
	}
	defer table.Close()

	val, err := table.Get(lsmtable.KeySlice(args[1]))
	if errors.Is(err, lsmtable.ErrNotFound) {
		return errors.Newf("%s: key %q not found", args[0], args[1])
	} else if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", val)
	return nil
}
