// Package cmd implements the poecycle command line
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/davidroman0O/poecycle/errors"
	"github.com/davidroman0O/poecycle/pkg/config"
	"github.com/davidroman0O/poecycle/pkg/cycle"
	"github.com/davidroman0O/poecycle/pkg/logging"
	"github.com/davidroman0O/poecycle/pkg/output"
	"github.com/davidroman0O/poecycle/pkg/resolver"
	"github.com/davidroman0O/poecycle/pkg/unifi"
)

// ControllerFactory opens a controller client. The returned func releases it.
type ControllerFactory func(cfg config.ControllerConfig, debug bool, logger *slog.Logger) (cycle.Controller, func(), error)

// Dependencies are the process resources the root command writes to and
// the controller it talks to
type Dependencies struct {
	Stdout        io.Writer
	Stderr        io.Writer
	NewController ControllerFactory
}

// options holds parsed flag values
type options struct {
	debug      bool
	dryRun     bool
	list       bool
	configPath string
	format     string
}

// NewUnifiController is the production ControllerFactory
func NewUnifiController(cfg config.ControllerConfig, debug bool, logger *slog.Logger) (cycle.Controller, func(), error) {
	c, err := unifi.New(cfg, unifi.WithDebug(debug), unifi.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// NewRootCommand builds the poecycle command
func NewRootCommand(deps Dependencies) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "poecycle [flags] name...",
		Short: "Power cycle PoE devices",
		Long: `Power cycles the PoE switch ports that named devices are plugged into,
through a UniFi controller.

Devices and controller credentials are read from an INI file (default
~/.unifi-config): a [_controller] section with url, username and password,
and one section per device with the switch mac and port.`,
		Example: `  poecycle -l
  poecycle -n camera-porch
  poecycle ap-kitchen ap-garage`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.list || len(args) > 0 {
				return nil
			}
			return errors.New(errors.ErrUsage, "one of -l/--list or at least one device name is required")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, deps, opts, args)
		},
	}

	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Wrap(err, errors.ErrUsage, "invalid flags")
	})

	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "print debug information")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "don't actually power cycle anything")
	cmd.Flags().BoolVarP(&opts.list, "list", "l", false, "list known devices")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "path to the config file")
	cmd.Flags().StringVarP(&opts.format, "output", "o", string(output.FormatTable), "list output format: table, yaml or json")

	return cmd
}

func run(cmd *cobra.Command, deps Dependencies, opts *options, args []string) error {
	logger := logging.New(deps.Stderr, opts.debug)
	ctx := logging.WithLogger(cmd.Context(), logger)

	if msg, warn := config.CheckPermissions(opts.configPath); warn {
		logger.Warn(msg)
	}

	f, err := config.Load(opts.configPath)
	if err != nil {
		if errors.GetCode(err) == errors.ErrConfigMissingController {
			fmt.Fprintln(deps.Stdout, err.Error())
			return reported(err)
		}
		return err
	}
	logger.Debug("config loaded", "path", f.Path(), "devices", len(f.Sections()))

	if opts.list {
		format, err := output.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		return output.WriteListings(deps.Stdout, format, resolver.Listings(f))
	}

	targets, err := resolver.Resolve(f, args)
	if err != nil {
		for _, p := range resolver.Problems(err) {
			fmt.Fprintln(deps.Stdout, p.Error())
		}
		fmt.Fprintln(deps.Stdout, "Aborting")
		return reported(err)
	}

	if opts.dryRun {
		return cycle.Run(ctx, targets, nil, cycle.Options{DryRun: true, Out: deps.Stdout})
	}

	ctrl, release, err := deps.NewController(f.Controller(), opts.debug, logger)
	if err != nil {
		return err
	}
	defer release()

	return cycle.Run(ctx, targets, ctrl, cycle.Options{Out: deps.Stdout})
}
