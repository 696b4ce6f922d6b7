package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prefkv/internal/value"
)

// SetResult is the output of the set and rm commands.
type SetResult struct {
	Namespace string   `json:"namespace"`
	Changed   []string `json:"changed"`
	Unchanged []string `json:"unchanged,omitempty"`
}

func (r SetResult) String() string {
	return fmt.Sprintf("%d changed, %d unchanged", len(r.Changed), len(r.Unchanged))
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "set <key> <value> [value...]",
		Short: "Store a value under a key",
		Long: `Store a value under a key and wait until it is persisted.

The value is validated against --type before it is written. A stringset
takes every remaining argument as one element; other types take exactly one.

Example:
  prefkv set -n ui theme dark
  prefkv set -n ui --type bool compact true
  prefkv set -n ui --type stringset recent a.txt b.txt`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(rootOpts, cmd, args[0], args[1:], typeName)
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "string", "value type (string|bool|int|long|float|stringset)")
	return cmd
}

func runSet(opts *RootOptions, cmd *cobra.Command, key string, args []string, typeName string) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	v, err := parseValue(typeName, args)
	if err != nil {
		return fail(f, ExitCommandError, CodeBadValue, err.Error(), nil)
	}

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	res, err := waitCommit(ctx, f, s.store.Edit().Put(key, v).Apply())
	if err != nil {
		return err
	}
	f.VerboseLog("task %s", res.TaskID)

	return f.Success(SetResult{
		Namespace: s.store.Namespace(),
		Changed:   nonNil(res.Persisted),
		Unchanged: res.Unchanged,
	})
}

// parseValue builds a typed value from command arguments.
func parseValue(typeName string, args []string) (value.Value, error) {
	kind, err := value.ParseKind(typeName)
	if err != nil {
		return nil, err
	}
	if kind == value.KindStringSet {
		return value.StringSet(args), nil
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("type %s takes exactly one value, got %d", kind, len(args))
	}
	return value.Decode(kind, args[0])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <key> [key...]",
		Short: "Remove keys",
		Long: `Remove keys and wait until the removal is persisted.

Keys that do not exist are ignored and not reported as changed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runRemove(opts *RootOptions, cmd *cobra.Command, keys []string) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	e := s.store.Edit()
	for _, k := range keys {
		e.Remove(k)
	}
	res, err := waitCommit(ctx, f, e.Apply())
	if err != nil {
		return err
	}

	return f.Success(SetResult{
		Namespace: s.store.Namespace(),
		Changed:   nonNil(res.Persisted),
	})
}
