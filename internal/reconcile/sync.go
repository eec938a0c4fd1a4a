// Package reconcile brings the page directories back in line with the city
// registry after crashes, failed compensations or manual edits.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/checksum"
	"github.com/starford/citypages/internal/metrics"
	"github.com/starford/citypages/internal/models"
	"github.com/starford/citypages/internal/pagegen"
	"github.com/starford/citypages/internal/provision"
)

// Report counts what a Sync pass found and repaired.
type Report struct {
	Records int `json:"records"`
	// Missing pages were written because no file existed.
	Missing int `json:"missing"`
	// Drifted pages were rewritten because their content differed from a
	// fresh render.
	Drifted int `json:"drifted"`
	// Orphans are generated files that matched no record and were removed.
	Orphans int `json:"orphans"`
	// Foreign files carry no generator header and were left alone.
	Foreign     int      `json:"foreign"`
	MarkedReady int      `json:"markedReady"`
	Errors      []string `json:"errors,omitempty"`
}

func (r *Report) add(o Report) {
	r.Records += o.Records
	r.Missing += o.Missing
	r.Drifted += o.Drifted
	r.Orphans += o.Orphans
	r.Foreign += o.Foreign
	r.MarkedReady += o.MarkedReady
	r.Errors = append(r.Errors, o.Errors...)
}

// Sync reconciles every category in cats. Per-file failures are collected in
// the report; only a failure to list records or files aborts.
func Sync(ctx context.Context, svc *provision.Service, cats []category.Category, logger *slog.Logger) (Report, error) {
	var total Report
	for _, cat := range cats {
		rep, err := syncCategory(ctx, svc, cat, logger)
		if err != nil {
			return total, err
		}
		total.add(rep)
	}
	return total, nil
}

func syncCategory(ctx context.Context, svc *provision.Service, cat category.Category, logger *slog.Logger) (Report, error) {
	var rep Report
	reg := svc.Registry(cat)
	store := svc.Store()

	// Files before records: a page written after the file listing is never
	// considered, and every page in the listing whose record exists is claimed.
	files, err := store.List(cat.Dir, pagegen.Ext)
	if err != nil {
		return rep, fmt.Errorf("reconcile %s: list pages: %w", cat, err)
	}
	records, err := reg.ListAll(ctx)
	if err != nil {
		return rep, fmt.Errorf("reconcile %s: list records: %w", cat, err)
	}
	rep.Records = len(records)

	onDisk := make(map[string]string, len(files))
	for _, f := range files {
		onDisk[f.Path] = f.Checksum
	}

	fail := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		rep.Errors = append(rep.Errors, msg)
		logger.Warn("reconcile: "+msg, slog.String("category", cat.Key))
	}

	claimed := make(map[string]struct{}, len(records))
	for i := range records {
		c := &records[i]
		p := provision.PagePath(c, cat)
		claimed[p] = struct{}{}

		want, err := pagegen.Render(c.Name, cat, c.Slug)
		if err != nil {
			fail("render %s: %v", c.ID, err)
			continue
		}

		sum, exists := onDisk[p]
		kind := ""
		switch {
		case !exists:
			kind = "missing"
		case !checksum.Matches(want, sum):
			kind = "drifted"
		}
		if kind != "" {
			if err := store.Write(p, want); err != nil {
				fail("write %s: %v", p, err)
				continue
			}
			metrics.ReconcileRepairs.WithLabelValues(cat.Key, kind).Inc()
			metrics.PagesWritten.WithLabelValues(cat.Key).Inc()
			if kind == "missing" {
				rep.Missing++
			} else {
				rep.Drifted++
			}
			logger.Info("reconcile: page rewritten",
				slog.String("category", cat.Key), slog.String("page", p), slog.String("kind", kind))
		}

		if c.ProvisionState != models.ProvisionReady {
			if err := reg.SetProvisionState(ctx, c.ID, models.ProvisionReady); err != nil {
				fail("mark %s ready: %v", c.ID, err)
				continue
			}
			rep.MarkedReady++
		}
	}

	for _, f := range files {
		if _, ok := claimed[f.Path]; ok {
			continue
		}
		data, err := store.Read(f.Path)
		if err != nil {
			fail("read %s: %v", f.Path, err)
			continue
		}
		if _, ours := pagegen.ParseHeader(data); !ours {
			rep.Foreign++
			logger.Debug("reconcile: leaving hand-written file",
				slog.String("category", cat.Key), slog.String("page", f.Path))
			continue
		}
		if err := store.Delete(f.Path); err != nil {
			fail("remove orphan %s: %v", f.Path, err)
			continue
		}
		metrics.ReconcileRepairs.WithLabelValues(cat.Key, "orphan").Inc()
		rep.Orphans++
		logger.Info("reconcile: orphan removed",
			slog.String("category", cat.Key), slog.String("page", f.Path))
	}

	if err := svc.RefreshManifest(ctx, cat); err != nil {
		fail("manifest: %v", err)
	}
	return rep, nil
}
