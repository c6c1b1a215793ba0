package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// RunFunc executes the review pipeline. It is injected from main so the
// command wiring stays testable.
type RunFunc func(ctx context.Context) error

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Run       RunFunc
	Version   string
	OutWriter io.Writer
	ErrWriter io.Writer
}

// NewRootCommand builds the plugin's root command. The plugin takes no
// positional arguments; everything arrives through the environment.
func NewRootCommand(deps Dependencies) *cobra.Command {
	var showVersion bool

	cmd := &cobra.Command{
		Use:           "drone-ai-pr-reviewer",
		Short:         "AI code review plugin for Drone CI pipelines",
		Long:          "Reviews the pull request that triggered the build: fetches the diff, asks an OpenAI-compatible model for suggestions, and posts them back as review comments.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), deps.Version)
				return ErrVersionRequested
			}
			return deps.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&showVersion, "version", false, "print the version and exit")

	if deps.OutWriter != nil {
		cmd.SetOut(deps.OutWriter)
	}
	if deps.ErrWriter != nil {
		cmd.SetErr(deps.ErrWriter)
	}
	return cmd
}
