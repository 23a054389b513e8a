package main

import (
	"fmt"
	"io"

	"github.com/scott-cotton/cli"

	"zipdir/pkg/archive"
	"zipdir/pkg/progress"
)

func (cfg *listConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: zipdir list <archive.zip>", cli.ErrUsage)
	}
	entries, err := archive.List(args[0])
	if err != nil {
		return err
	}
	return writeEntries(cc.Out, entries)
}

func writeEntries(w io.Writer, entries []archive.Entry) error {
	var size, stored uint64
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%10s %10s  %-7s  %s  %s\n",
			progress.FormatSize(e.Size), progress.FormatSize(e.CompressedSize),
			archive.MethodName(e.Method), e.Modified.Format("2006-01-02 15:04"), e.Name); err != nil {
			return err
		}
		size += e.Size
		stored += e.CompressedSize
	}
	_, err := fmt.Fprintf(w, "%10s %10s  %d entries\n",
		progress.FormatSize(size), progress.FormatSize(stored), len(entries))
	return err
}
