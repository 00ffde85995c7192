package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/davidroman0O/poecycle/errors"
)

// reportedError marks an error whose message was already printed to the user
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	return &reportedError{err: err}
}

// Execute runs poecycle with args and returns the process exit status
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(Dependencies{
		Stdout:        stdout,
		Stderr:        stderr,
		NewController: NewUnifiController,
	})
	return execute(ctx, root, args)
}

func execute(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var already *reportedError
	if !stderrors.As(err, &already) {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		if errors.IsUsage(err) {
			fmt.Fprint(root.ErrOrStderr(), root.UsageString())
		}
	}
	return errors.ExitCode(err)
}
