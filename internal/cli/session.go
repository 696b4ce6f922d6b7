package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/prefkv/internal/prefs"
	"github.com/roach88/prefkv/internal/table"
)

// session is one command's view of the database.
type session struct {
	db    *table.SQLite
	reg   *prefs.Registry
	store *prefs.Store
}

// openSession opens the configured database and namespace.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	log := opts.Logger.With("db", opts.Config.Database)
	log.Debug("opening database")

	db, err := table.Open(opts.Config.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	reg := prefs.NewRegistry(db, prefs.WithLogger(opts.Logger))
	st, err := reg.Store(ctx, opts.Config.Namespace)
	if err != nil {
		_ = reg.Close(ctx)
		_ = db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open namespace", err)
	}
	return &session{db: db, reg: reg, store: st}, nil
}

// close drains pending commits and closes the database.
func (s *session) close(ctx context.Context) error {
	return errors.Join(s.reg.Close(ctx), s.db.Close())
}

// commandContext returns the command's context, or Background when the
// command runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// fail writes an error response and returns the matching ExitError.
func fail(f *OutputFormatter, exit int, code, message string, details any) error {
	_ = f.Error(code, message, details)
	return NewExitError(exit, code+": "+message)
}

// waitCommit waits for c and converts unpersisted keys into a failure.
func waitCommit(ctx context.Context, f *OutputFormatter, c *prefs.Commit) (prefs.CommitResult, error) {
	res, err := c.Wait(ctx)
	if err != nil {
		return res, WrapExitError(ExitFailure, "commit did not run", err)
	}
	if !res.OK() {
		details := make(map[string]string, len(res.Failed))
		for k, e := range res.Failed {
			details[k] = e.Error()
		}
		return res, fail(f, ExitFailure, CodeNotPersisted, "some keys were not persisted", details)
	}
	return res, nil
}
