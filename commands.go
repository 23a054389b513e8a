package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/scott-cotton/cli"
)

const description = `zipdir moves directory trees in and out of zip archives.

Settings come from the built-in defaults, then the file given with -config,
then ZIPDIR_* environment variables.

Examples:
  zipdir zip -o site.zip public/ README.md
  zipdir unzip -keep site.zip out/
  zipdir list site.zip
  zipdir edit site.zip -- sh -c 'rm -r public/drafts'`

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "zipdir").
		WithSynopsis("zipdir [opts] command [opts]").
		WithDescription(description).
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return zipdirMain(cfg, cc, args)
		}).
		WithSubs(
			ZipCommand(cfg),
			UnzipCommand(cfg),
			ListCommand(cfg),
			EditCommand(cfg))
}

func zipdirMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

func ZipCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &zipConfig{main: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "zip").
		WithAliases("z").
		WithSynopsis("zip [-o out.zip] <paths...>").
		WithDescription("write the files under paths to an archive, named relative to each path's parent").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func UnzipCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &unzipConfig{main: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "unzip").
		WithAliases("x").
		WithSynopsis("unzip [-keep] [-stream] <archive.zip|-> [dir]").
		WithDescription("extract an archive into dir (default .); - reads the archive from stdin").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func ListCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &listConfig{main: mainCfg}
	return cli.NewCommandAt(&cfg.Command, "list").
		WithAliases("ls").
		WithSynopsis("list <archive.zip>").
		WithDescription("list the entries of an archive").
		WithRun(cfg.run)
}

func EditCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &editConfig{main: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "edit").
		WithSynopsis("edit [-discard] <archive.zip> [--] <command> [args...]").
		WithDescription("run command inside an extracted copy of the archive and write the result back " +
			"when it succeeds; the directory is also exported as ZIPDIR_DIR").
		WithOpts(opts...).
		WithRun(cfg.run)
}
