package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/dialogue"
	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

// Persister stores a finished record and returns its dialog id.
type Persister interface {
	Write(ctx context.Context, rec *domain.DialogueRecord) (int64, error)
}

// Recorder receives per-dialogue outcomes. Implemented by metrics.Metrics.
type Recorder interface {
	ObserveDialogue(rec *domain.DialogueRecord)
	ObserveFailure(mode string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDialogue(*domain.DialogueRecord) {}
func (nopRecorder) ObserveFailure(string)                 {}

// Summary is what a run produced.
type Summary struct {
	RunID     string
	Mode      dialogue.Mode
	Requested int
	Succeeded int
	Failed    int
	Skipped   int // never attempted because the run stopped early
	Flags     map[string]int
	Elapsed   time.Duration
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (%s): %d/%d ok, %d errors", s.RunID, s.Mode, s.Succeeded, s.Requested, s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", s.Skipped)
	}
	fmt.Fprintf(&b, " in %s", s.Elapsed.Round(time.Second))

	names := make([]string, 0, len(s.Flags))
	for name := range s.Flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %d", name, s.Flags[name])
	}
	return b.String()
}

// Runner drives a generator sequentially until the requested number of
// dialogues has been attempted.
type Runner struct {
	gen      dialogue.Generator
	writer   Persister
	recorder Recorder
	logger   *zap.Logger
	runID    string
	now      func() time.Time
}

func New(gen dialogue.Generator, writer Persister, recorder Recorder, logger *zap.Logger) *Runner {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()
	return &Runner{
		gen:      gen,
		writer:   writer,
		recorder: recorder,
		logger:   logger.With(zap.String("run_id", runID)),
		runID:    runID,
		now:      time.Now,
	}
}

func (r *Runner) RunID() string { return r.runID }

// Run attempts count dialogues. A failing dialogue is counted and skipped; a
// daily quota error or a cancelled context ends the run early.
func (r *Runner) Run(ctx context.Context, count int) Summary {
	started := r.now()
	mode := r.gen.Mode()
	summary := Summary{
		RunID:     r.runID,
		Mode:      mode,
		Requested: count,
		Flags:     make(map[string]int),
	}

	r.logger.Info("Run started",
		zap.String("mode", string(mode)),
		zap.Int("count", count),
		zap.Int("per_call", r.gen.Size()),
	)

	attempted := 0
	for attempted < count {
		if ctx.Err() != nil {
			r.logger.Warn("Run cancelled", zap.Error(ctx.Err()))
			break
		}

		want := min(r.gen.Size(), count-attempted)
		attempted += want

		results, err := r.generate(ctx)
		if len(results) > want {
			results = results[:want]
		}
		for _, res := range results {
			if r.persist(ctx, res, &summary) {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
		}

		missing := want - len(results)
		if missing > 0 {
			summary.Failed += missing
			for range missing {
				r.recorder.ObserveFailure(string(mode))
			}
			r.logger.Warn("Dialogue generation failed",
				zap.Int("missing", missing),
				zap.Int("attempted", attempted),
				zap.Error(err),
			)
		}

		if stop, reason := fatal(err); stop {
			r.logger.Error("Stopping run early", zap.String("reason", reason), zap.Error(err))
			break
		}
	}

	summary.Skipped = count - attempted
	summary.Elapsed = r.now().Sub(started)
	r.logger.Info("Run finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary
}

// generate isolates one Generate call; a panic becomes an error.
func (r *Runner) generate(ctx context.Context) (results []*dialogue.Result, err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		results, err = r.gen.Generate(ctx)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		return nil, recovered.AsError()
	}
	return results, err
}

func (r *Runner) persist(ctx context.Context, res *dialogue.Result, summary *Summary) bool {
	rec := &domain.DialogueRecord{
		RunID:           r.runID,
		Mode:            string(res.Mode),
		ClientProfile:   res.Profile,
		Turns:           res.Transcript,
		FinalOrder:      res.Order,
		TotalEnergy:     res.Order.TotalEnergy,
		ValidationFlags: res.Flags,
		CreatedAt:       r.now().UTC(),
	}

	id, err := r.writer.Write(ctx, rec)
	if err != nil {
		r.recorder.ObserveFailure(rec.Mode)
		r.logger.Error("Failed to persist dialogue", zap.Int64("dialog_id", id), zap.Error(err))
		return false
	}

	r.recorder.ObserveDialogue(rec)
	for name, raised := range rec.ValidationFlags.Named() {
		if raised {
			summary.Flags[name]++
		}
	}
	r.logger.Info("Dialogue saved",
		zap.Int64("dialog_id", id),
		zap.String("lang", string(rec.ClientProfile.Lang)),
		zap.Int("turns", len(rec.Turns)),
		zap.Int("items", len(rec.FinalOrder.Items)),
		zap.Int("flags", rec.ValidationFlags.Count()),
	)
	return true
}

// fatal reports errors after which further calls cannot succeed.
func fatal(err error) (bool, string) {
	if err == nil {
		return false, ""
	}
	var rlErr *errors.RateLimitError
	if stderrors.As(err, &rlErr) && rlErr.Daily {
		return true, "daily quota exhausted"
	}
	var cfgErr *errors.ConfigurationError
	if stderrors.As(err, &cfgErr) {
		return true, "configuration"
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return true, "cancelled"
	}
	return false, ""
}
