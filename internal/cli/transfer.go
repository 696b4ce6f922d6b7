package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Document is the YAML form of one namespace used by export and import.
type Document struct {
	Namespace string            `yaml:"namespace"`
	Entries   map[string]string `yaml:"entries"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a namespace as YAML",
		Long: `Write every key and raw value of a namespace as a YAML document.

The document can be loaded again with import. Output goes to stdout unless
--output names a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, cmd, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func runExport(opts *RootOptions, cmd *cobra.Command, output string) error {
	ctx := commandContext(cmd)

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	all, err := s.store.GetAll(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read namespace", err)
	}

	w := cmd.OutOrStdout()
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer file.Close()
		w = file
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Document{Namespace: s.store.Namespace(), Entries: all}); err != nil {
		return WrapExitError(ExitCommandError, "failed to write YAML", err)
	}
	return enc.Close()
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a YAML document into a namespace",
		Long: `Load a document written by export into a namespace.

All entries are applied as one commit. The namespace comes from --namespace
or the config file; the document's own namespace field is informational.
Use "-" to read from stdin. With --prune, keys missing from the document
are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, cmd, args[0], prune)
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "remove keys not present in the document")
	return cmd
}

func runImport(opts *RootOptions, cmd *cobra.Command, path string, prune bool) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	doc, err := readDocument(cmd.InOrStdin(), path)
	if err != nil {
		return fail(f, ExitCommandError, CodeBadValue, err.Error(), nil)
	}

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	e := s.store.Edit()
	if prune {
		current, err := s.store.GetAll(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read namespace", err)
		}
		for k := range current {
			if _, keep := doc.Entries[k]; !keep {
				e.Remove(k)
			}
		}
	}
	for k, v := range doc.Entries {
		e.PutString(k, v)
	}
	f.VerboseLog("importing %d entries from %s", len(doc.Entries), path)

	res, err := waitCommit(ctx, f, e.Apply())
	if err != nil {
		return err
	}

	return f.Success(SetResult{
		Namespace: s.store.Namespace(),
		Changed:   nonNil(res.Persisted),
		Unchanged: res.Unchanged,
	})
}

func readDocument(stdin io.Reader, path string) (*Document, error) {
	r := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer file.Close()
		r = file
	}

	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &doc, nil
}
