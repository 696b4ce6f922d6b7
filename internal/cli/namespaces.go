package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/prefkv/internal/table"
)

// NamespacesResult is the output of the namespaces command.
type NamespacesResult struct {
	Namespaces []string `json:"namespaces"`
}

func (r NamespacesResult) String() string {
	return strings.Join(r.Namespaces, "\n")
}

// NewNamespacesCommand creates the namespaces command.
func NewNamespacesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "namespaces",
		Short: "List the namespaces stored in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNamespaces(rootOpts, cmd)
		},
	}
	return cmd
}

func runNamespaces(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	db, err := table.Open(opts.Config.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	names, err := db.Namespaces(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list namespaces", err)
	}
	return f.Success(NamespacesResult{Namespaces: names})
}
