package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/mcpserver"
	"github.com/starford/citypages/internal/migrate"
	"github.com/starford/citypages/internal/reconcile"
)

// RunMCP serves the read-only MCP tools over stdio. Logs go to stderr unless
// another console is configured.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogConsole(os.Stderr)}, opts...))
	rt, err := bootstrap(ctx, app)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("Starting MCP server on stdio")
	return mcpserver.New(rt.service()).ServeStdio()
}

// RunReconcile runs one reconciliation pass over every category and prints
// the report as JSON.
func RunReconcile(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := bootstrap(ctx, app)
	if err != nil {
		return err
	}
	defer rt.Close()

	rep, err := reconcile.Sync(ctx, rt.service(), category.All(), rt.logger)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	return printJSON(app.output, rep)
}

// RunMigrate rewrites legacy bike slugs to the current scheme and prints the
// summary as JSON.
func RunMigrate(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := bootstrap(ctx, app)
	if err != nil {
		return err
	}
	defer rt.Close()

	sum, err := migrate.Slugs(ctx, rt.service(), category.Bike, migrate.Options{DryRun: app.dryRun}, rt.logger)
	if err != nil {
		return fmt.Errorf("migrate slugs: %w", err)
	}
	rt.logger.Info("slug migration finished",
		slog.Bool("dry_run", app.dryRun),
		slog.Int("migrated", sum.Migrated),
		slog.Int("skipped", sum.Skipped))
	return printJSON(app.output, sum)
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
