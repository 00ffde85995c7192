// Package cycle runs the power-cycle sequence against a controller
package cycle

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/davidroman0O/poecycle/pkg/config"
	"github.com/davidroman0O/poecycle/pkg/logging"
)

// Controller is the session-based API that performs the power cycles
type Controller interface {
	// Login opens the session used by PowerCycle
	Login(ctx context.Context) error

	// PowerCycle toggles PoE on port of the switch with the given MAC
	PowerCycle(ctx context.Context, mac, port string) error

	// Logout closes the session
	Logout(ctx context.Context) error
}

// Options controls a run
type Options struct {
	// DryRun prints progress without contacting the controller
	DryRun bool

	// Out receives progress lines, os.Stdout when nil
	Out io.Writer
}

// ProgressLine is printed before each power-cycle attempt
func ProgressLine(d config.DeviceSpec) string {
	return fmt.Sprintf("Power cycling device %s on switch %s port %s", d.Name, d.MAC, d.Port)
}

// Run logs in, power-cycles every target in order and logs out. The first
// failing power cycle stops the run; targets already cycled stay cycled.
// In dry-run mode ctrl is never used and may be nil.
func Run(ctx context.Context, targets []config.DeviceSpec, ctrl Controller, opts Options) (err error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger := logging.FromContext(ctx)

	if opts.DryRun {
		for _, d := range targets {
			fmt.Fprintln(out, ProgressLine(d))
		}
		logger.Debug("dry run, controller not contacted", "devices", len(targets))
		return nil
	}

	if err := ctrl.Login(ctx); err != nil {
		return err
	}

	// Release the session even when a power cycle fails
	defer func() {
		if lerr := ctrl.Logout(ctx); lerr != nil {
			if err == nil {
				err = lerr
				return
			}
			logger.Warn("logout failed", "error", lerr)
		}
	}()

	for i, d := range targets {
		fmt.Fprintln(out, ProgressLine(d))
		if err := ctrl.PowerCycle(ctx, d.MAC, d.Port); err != nil {
			if remaining := len(targets) - i - 1; remaining > 0 {
				logger.Warn("stopping, remaining devices not cycled", "device", d.Name, "remaining", remaining)
			}
			return fmt.Errorf("power cycling %s: %w", d.Name, err)
		}
		logger.Debug("power cycled", "device", d.Name, "mac", d.MAC, "port", d.Port)
	}

	return nil
}
