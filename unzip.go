package main

import (
	"fmt"
	"os"

	"github.com/scott-cotton/cli"
	"go.uber.org/multierr"

	"zipdir/pkg/archive"
)

func (cfg *unzipConfig) run(cc *cli.Context, args []string) (err error) {
	args, err = cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: usage: zipdir unzip [-keep] [-stream] <archive.zip|-> [dir]", cli.ErrUsage)
	}
	src, dest := args[0], "."
	if len(args) == 2 {
		dest = args[1]
	}

	s, err := cfg.main.session()
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(func() error { return s.close(cc.Out) }))

	var total uint64
	if src != "-" && !cfg.Stream {
		if total, err = archive.ContentSize(src); err != nil {
			return err
		}
	}
	t := s.tracker(total)
	opts := s.common(t)
	if cfg.Keep {
		opts = append(opts, archive.WithOverwrite(archive.NeverOverwrite))
	}

	switch {
	case src == "-":
		err = archive.UnzipStream(cc.In, dest, opts...)
	case cfg.Stream:
		err = unzipStreamFile(src, dest, opts)
	default:
		err = archive.Unzip(src, dest, opts...)
	}
	t.Stop()
	if err != nil {
		return err
	}
	success(cc.Out, "Extracted %s into %s\n", src, dest)
	return nil
}

func unzipStreamFile(src, dest string, opts []archive.Option) (err error) {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", src, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return archive.UnzipStream(f, dest, opts...)
}
