package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/scott-cotton/cli"
	"go.uber.org/multierr"

	"zipdir/pkg/archive"
)

func (cfg *zipConfig) run(cc *cli.Context, args []string) (err error) {
	args, err = cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: zipdir zip [-o out.zip] <paths...>", cli.ErrUsage)
	}
	s, err := cfg.main.session()
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(func() error { return s.close(cc.Out) }))

	output := cfg.Output
	if output == "" {
		output = defaultOutput(args[0])
	}

	t := s.tracker(archive.TreeSize(args))
	opts, err := s.encodeOptions(t)
	if err != nil {
		return err
	}
	err = archive.ZipFile(output, args, opts...)
	t.Stop()
	if err != nil {
		return err
	}
	success(cc.Out, "Created %s\n", output)
	return nil
}

// defaultOutput names the archive after input, unless that file already
// exists. It goes in the working directory, or next to input when the
// working directory is being archived.
func defaultOutput(input string) string {
	abs, err := filepath.Abs(input)
	if err != nil {
		abs = filepath.Clean(input)
	}
	dir := "."
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(abs, wd); err == nil && filepath.IsLocal(rel) {
			dir = filepath.Dir(abs)
		}
	}
	name := filepath.Join(dir, filepath.Base(abs)+".zip")
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return name
	}
	return filepath.Join(dir, "output.zip")
}
