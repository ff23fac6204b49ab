package main

import (
	"fmt"
	"sort"

	"github.com/bsm/lsmtable"
	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (t *toolT) runGen(cmd *cobra.Command, args []string) error {
	o, err := t.writerOptions()
	if err != nil {
		return err
	}

	keys := make([]string, 0, t.count)
	for i := 0; i < t.count; i++ {
		keys = append(keys, uuid.NewString())
	}
	sort.Strings(keys)

	w := lsmtable.NewSsTableBuilder(o)
	n := 0
	for i, key := range keys {
		if i > 0 && keys[i-1] == key {
			continue
		}
		if err := w.Add(lsmtable.KeySlice(key), []byte(faker.Sentence())); err != nil {
			return err
		}
		n++
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
