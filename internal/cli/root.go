package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rightskeeper/internal/bootstrap"
)

// BuildFunc assembles the backend for a command run.
type BuildFunc func() (bootstrap.Services, error)

// env is shared by all commands of one invocation.
type env struct {
	build    BuildFunc
	services *bootstrap.Services
	jsonOut  bool
	noColor  bool
}

func (e *env) open() (*bootstrap.Services, error) {
	if e.services != nil {
		return e.services, nil
	}
	services, err := e.build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}
	e.services = &services
	return e.services, nil
}

func (e *env) close(ctx context.Context) error {
	if e.services == nil {
		return nil
	}
	err := e.services.Close(ctx)
	e.services = nil
	return err
}

func (e *env) writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
	headColor = color.New(color.Bold)
)

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "rkctl",
		Short: "Manage RightsKeeper recordings and incident reports",
		Long: `rkctl works on the same local store as the RightsKeeper app.

It lists, renames and deletes recordings, manages incident reports,
exports them as PDF or HTML and reconciles the recordings directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if e.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().BoolVar(&e.jsonOut, "json", false, "print JSON instead of text")
	root.PersistentFlags().BoolVar(&e.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newRecordingsCommand(e),
		newIncidentsCommand(e),
		newReconcileCommand(e),
		newAgenciesCommand(e),
	)
	return root
}

// Run executes rkctl with args and releases the backend afterwards.
func Run(ctx context.Context, args []string, out io.Writer, errOut io.Writer, build BuildFunc) error {
	e := &env{build: build}
	root := newRootCommand(e)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if closeErr := e.close(ctx); err == nil {
		err = closeErr
	}
	return err
}

// Execute is the entry point of the rkctl binary.
func Execute() {
	build := func() (bootstrap.Services, error) { return bootstrap.Build(nil) }
	if err := Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, build); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
