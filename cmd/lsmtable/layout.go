package main

import (
	"fmt"

	"github.com/kr/pretty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func (t *toolT) runLayout(cmd *cobra.Command, args []string) error {
	table, err := t.openTable(args[0])
	if err != nil {
		return err
	}
	defer table.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", args[0])

	tbl := tablewriter.NewWriter(out)
	tbl.SetAutoFormatHeaders(false)
	tbl.SetHeader([]string{"Block", "Offset", "Size", "Entries", "Codec", "First Key", "Last Key", "Checksum"})
	tbl.SetAlignment(tablewriter.ALIGN_RIGHT)

	for i, n := 0, table.NumBlocks(); i < n; i++ {
		meta := table.BlockMeta(i)
		end := table.MetaOffset()
		if i+1 < n {
			end = table.BlockMeta(i + 1).Offset
		}

		b, err := table.ReadBlock(i)
		if err != nil {
			return err
		}

		tbl.Append([]string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%d", meta.Offset),
			fmt.Sprintf("%d", end-meta.Offset),
			fmt.Sprintf("%d", b.NumEntries()),
			meta.Compression.String(),
			meta.FirstKey.String(),
			meta.LastKey.String(),
			fmt.Sprintf("%08x", meta.Checksum),
		})
	}
	tbl.Render()

	fmt.Fprintf(out, "meta offset: %d\ntable size:  %d\n", table.MetaOffset(), table.TableSize())

	if t.verbose {
		for i := 0; i < table.NumBlocks(); i++ {
			pretty.Fprintf(out, "%d: %# v\n", i, table.BlockMeta(i))
		}
	}
	return nil
}
