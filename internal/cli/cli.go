// Package cli handles command line interface logic
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/config"
	"github.com/retroenv/snespatch/internal/fileprocessor"
	"github.com/retroenv/snespatch/internal/level"
	"github.com/retroenv/snespatch/internal/options"
	"github.com/retroenv/snespatch/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errMissingROM = errors.New(`required flag "rom" not set`)

// BuildInfo describes the program build shown in the banner.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// runner holds the state shared by all commands of one execution.
type runner struct {
	info     BuildInfo
	global   options.Global
	logger   *log.Logger
	pipeline *pipeline.Pipeline
}

// Execute parses the arguments and runs the selected command. Errors are
// logged before being returned.
func Execute(ctx context.Context, args []string, info BuildInfo) error {
	r := &runner{info: info}
	root := r.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	logger := r.logger
	if logger == nil {
		logger = config.Default().NewLogger(r.global.Debug, r.global.Quiet)
	}
	if errors.Is(err, context.Canceled) {
		logger.Info("Operation cancelled")
	} else {
		logger.Error("Command failed", log.Err(err))
	}
	return err
}

func (r *runner) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "snespatch",
		Short:             "Insert and manage levels in SNES cartridge images",
		SilenceErrors:     true,
		PersistentPreRunE: r.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&r.global.ROM, "rom", "", "cartridge image file")
	flags.StringVar(&r.global.Config, "config", "", "YAML configuration file")
	flags.BoolVar(&r.global.Debug, "debug", false, "enable debug logging")
	flags.BoolVarP(&r.global.Quiet, "quiet", "q", false, "perform operations quietly")

	root.AddCommand(
		r.insertCommand(),
		r.removeCommand(),
		r.freeCommand(),
		r.extractCommand(),
		r.restoreCommand(),
	)
	return root
}

// setup runs after argument parsing, errors from here on do not print the
// usage.
func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.LoadFile(r.global.Config)
	if err != nil {
		return err
	}

	r.logger = cfg.NewLogger(r.global.Debug, r.global.Quiet)
	fileprocessor.PrintBanner(r.logger, r.global, r.info.Version, r.info.Commit, r.info.Date)
	r.pipeline = pipeline.New(r.logger, cfg)
	return nil
}

func (r *runner) requireROM() error {
	if r.global.ROM == "" {
		return errMissingROM
	}
	return nil
}

func (r *runner) insertCommand() *cobra.Command {
	var opts options.Insert
	cmd := &cobra.Command{
		Use:   "insert --level <hex> <level.yaml>",
		Short: "Encode a level description and insert it into the image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireROM(); err != nil {
				return err
			}
			opts.File = args[0]
			_, err := r.pipeline.Insert(cmd.Context(), r.global, opts)
			return err
		},
	}

	flags := cmd.Flags()
	addLevelFlag(cmd, &opts.Level)
	flags.BoolVar(&opts.DryRun, "dry-run", false, "encode and verify without writing the image")
	flags.BoolVar(&opts.NoBackup, "no-backup", false, "do not back up the image before writing")
	return cmd
}

func (r *runner) removeCommand() *cobra.Command {
	var opts options.Remove
	cmd := &cobra.Command{
		Use:   "remove --level <hex>",
		Short: "Remove a level record and clear its pointer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.requireROM(); err != nil {
				return err
			}
			_, err := r.pipeline.Remove(cmd.Context(), r.global, opts)
			return err
		},
	}

	addLevelFlag(cmd, &opts.Level)
	cmd.Flags().BoolVar(&opts.NoBackup, "no-backup", false, "do not back up the image before writing")
	return cmd
}

func (r *runner) freeCommand() *cobra.Command {
	var opts options.Free
	cmd := &cobra.Command{
		Use:   "free --size <bytes>",
		Short: "Search the image for a free region",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := r.requireROM(); err != nil {
				return err
			}
			_, err := r.pipeline.Free(r.global, opts)
			return err
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.Size, "size", 0, "number of bytes to find")
	flags.UintVar(&opts.Align, "align", 0, "number of low address bits that must be zero")
	if err := cmd.MarkFlagRequired("size"); err != nil {
		panic(err)
	}
	return cmd
}

func (r *runner) extractCommand() *cobra.Command {
	var opts options.Extract
	cmd := &cobra.Command{
		Use:   "extract <offset>...",
		Short: "Decompress LC_LZ2 or LC_LZ3 streams of the image into files",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("requires at least 1 offset")
			}
			offsets, err := parseOffsets(args)
			if err != nil {
				return err
			}
			opts.Offsets = offsets
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.requireROM(); err != nil {
				return err
			}
			_, err := r.pipeline.Extract(cmd.Context(), r.global, opts)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Format, "format", "lz2", "compression format: lz2, lz3")
	flags.StringVarP(&opts.Output, "output", "o", ".", "directory to write the decompressed streams to")
	return cmd
}

func (r *runner) restoreCommand() *cobra.Command {
	var opts options.Restore
	return &cobra.Command{
		Use:   "restore <backup>",
		Short: "Restore an image from a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			opts.Backup = args[0]
			_, err := r.pipeline.Restore(opts)
			return err
		},
	}
}

func addLevelFlag(cmd *cobra.Command, target *uint16) {
	cmd.Flags().Var(&levelValue{level: target}, "level", "level number (hex)")
	if err := cmd.MarkFlagRequired("level"); err != nil {
		panic(err)
	}
}

// levelValue parses hexadecimal level numbers with an optional 0x prefix.
type levelValue struct {
	level *uint16
}

var _ pflag.Value = (*levelValue)(nil)

func (v *levelValue) String() string {
	if v.level == nil {
		return "0"
	}
	return strconv.FormatUint(uint64(*v.level), 16)
}

func (v *levelValue) Set(s string) error {
	n, err := parseLevel(s)
	if err != nil {
		return err
	}
	*v.level = n
	return nil
}

func (v *levelValue) Type() string {
	return "hex"
}

func parseLevel(s string) (uint16, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(s), "0x")
	n, err := strconv.ParseUint(trimmed, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid level number '%s'", s)
	}
	if n >= level.MaxLevels {
		return 0, fmt.Errorf("level number 0x%x too high, maximum is 0x%x", n, level.MaxLevels-1)
	}
	return uint16(n), nil
}

// parseOffsets parses decimal or 0x prefixed hexadecimal offsets.
func parseOffsets(args []string) ([]int, error) {
	offsets := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.ParseInt(arg, 0, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid offset '%s'", arg)
		}
		offsets = append(offsets, int(n))
	}
	return offsets, nil
}
