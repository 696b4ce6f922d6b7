package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// Entry is one key/value pair in command output.
type Entry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// ListResult is the output of the list command.
type ListResult struct {
	Namespace string  `json:"namespace"`
	Entries   []Entry `json:"entries"`
}

func (r ListResult) String() string {
	var b strings.Builder
	for i, e := range r.Entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s=%s", e.Key, e.Value)
	}
	return b.String()
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every key of a namespace",
		Long: `List every key and raw value of a namespace, sorted by key.

Example:
  prefkv list -n ui
  prefkv list -n ui --prefix window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd, prefix)
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "only list keys with this prefix")
	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command, prefix string) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	all, err := s.store.GetAll(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list keys", err)
	}

	return f.Success(ListResult{
		Namespace: s.store.Namespace(),
		Entries:   sortedEntries(all, prefix),
	})
}

// sortedEntries returns the entries of m whose key has prefix, by key.
func sortedEntries(m map[string]string, prefix string) []Entry {
	entries := make([]Entry, 0, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, prefix) {
			entries = append(entries, Entry{Key: k, Value: v})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
