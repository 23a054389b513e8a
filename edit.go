package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/scott-cotton/cli"
	"go.uber.org/multierr"

	"zipdir/pkg/zipdir"
)

func (cfg *editConfig) run(cc *cli.Context, args []string) (err error) {
	args, err = cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) > 1 && args[1] == "--" {
		args = append(args[:1], args[2:]...)
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: zipdir edit [-discard] <archive.zip> [--] <command> [args...]", cli.ErrUsage)
	}

	s, err := cfg.main.session()
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(func() error { return s.close(cc.Out) }))

	encode, err := s.encodeOptions(nil)
	if err != nil {
		return err
	}
	d, err := zipdir.Open(args[0],
		zipdir.WithPersist(false),
		zipdir.WithLocation(s.settings.TempLocation),
		zipdir.WithEncodeOptions(encode...),
		zipdir.WithLogger(s.logger),
		zipdir.WithMetrics(s.metrics))
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(d))

	cmd := exec.Command(args[1], args[2:]...)
	cmd.Dir = d.Path()
	cmd.Env = append(os.Environ(), "ZIPDIR_DIR="+d.Path())
	cmd.Stdin = cc.In
	cmd.Stdout = cc.Out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w (archive left unchanged)", args[1], err)
	}

	if cfg.Discard {
		return nil
	}
	if err := d.Push(); err != nil {
		return err
	}
	success(cc.Out, "Updated %s\n", args[0])
	return nil
}
