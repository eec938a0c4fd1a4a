package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/metrics"
)

// step is one action of a provisioning operation. undo, when set, reverses a
// completed do.
type step struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// saga runs steps in order and remembers the completed ones so they can be
// compensated in reverse if a later step fails.
type saga struct {
	cat    category.Category
	op     string
	logger *slog.Logger
	done   []step
}

func newSaga(cat category.Category, op string, logger *slog.Logger) *saga {
	return &saga{cat: cat, op: op, logger: logger}
}

func (s *saga) run(ctx context.Context, st step) error {
	if err := st.do(ctx); err != nil {
		s.logger.Warn("provisioning step failed",
			slog.String("category", s.cat.Key),
			slog.String("operation", s.op),
			slog.String("step", st.name),
			slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", st.name, err)
	}
	s.done = append(s.done, st)
	return nil
}

// compensate undoes completed steps, newest first. It keeps going after a
// failed undo and returns every undo error joined.
func (s *saga) compensate(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(s.done) - 1; i >= 0; i-- {
		st := s.done[i]
		if st.undo == nil {
			continue
		}
		metrics.ProvisionCompensations.WithLabelValues(s.cat.Key, st.name).Inc()
		if err := st.undo(ctx); err != nil {
			s.logger.Error("compensation failed",
				slog.String("category", s.cat.Key),
				slog.String("operation", s.op),
				slog.String("step", st.name),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("undo %s: %w", st.name, err))
			continue
		}
		s.logger.Info("compensated step",
			slog.String("category", s.cat.Key),
			slog.String("operation", s.op),
			slog.String("step", st.name))
	}
	s.done = nil
	return errors.Join(errs...)
}
