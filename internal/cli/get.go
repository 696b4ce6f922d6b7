package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/prefkv/internal/value"
)

// GetResult is the output of the get command.
type GetResult struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value any    `json:"value"`
	Found bool   `json:"found"`
	text  string
}

func (r GetResult) String() string {
	return r.text
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		typeName string
		def      string
	)

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value of a key",
		Long: `Print the value stored under a key.

With --type the stored string is decoded as that type and the command fails
if it does not parse. With --default a missing key prints the default instead
of failing.

Example:
  prefkv get -n ui theme
  prefkv get -n ui --type int font_size --default 12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, cmd, args[0], typeName, def, cmd.Flags().Changed("default"))
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "string", "value type (string|bool|int|long|float|stringset)")
	cmd.Flags().StringVar(&def, "default", "", "value to print when the key is absent")
	return cmd
}

func runGet(opts *RootOptions, cmd *cobra.Command, key, typeName, def string, hasDefault bool) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	kind, err := value.ParseKind(typeName)
	if err != nil {
		return fail(f, ExitCommandError, CodeBadValue, err.Error(), nil)
	}

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	raw, found, err := s.store.Get(ctx, key)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read key", err)
	}
	if !found {
		if !hasDefault {
			return fail(f, ExitFailure, CodeNotFound, fmt.Sprintf("key %q not found", key), nil)
		}
		raw = def
	}

	v, err := value.Decode(kind, raw)
	if err != nil {
		var mm *value.TypeMismatchError
		if errors.As(err, &mm) && found {
			mm.Key = key
		}
		return fail(f, ExitFailure, CodeBadValue, err.Error(), nil)
	}

	return f.Success(GetResult{
		Key:   key,
		Type:  kind.String(),
		Value: jsonValue(v),
		Found: found,
		text:  textValue(v),
	})
}

// jsonValue returns v as a JSON-friendly Go value.
func jsonValue(v value.Value) any {
	switch v := v.(type) {
	case value.String:
		return string(v)
	case value.Bool:
		return bool(v)
	case value.Int:
		return int32(v)
	case value.Long:
		return int64(v)
	case value.Float:
		return float32(v)
	case value.StringSet:
		return []string(v)
	}
	return v.Encode()
}

// textValue renders v for text output. Set elements go on separate lines.
func textValue(v value.Value) string {
	if set, ok := v.(value.StringSet); ok {
		return strings.Join(set, "\n")
	}
	return v.Encode()
}
