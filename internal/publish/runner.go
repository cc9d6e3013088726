package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"slate/internal/logging"
	"slate/internal/services"
)

// Lifecycle phase names used for context annotation and logging.
const (
	PhaseAccept   = "accept"
	PhaseValidate = "validate"
	PhasePublish  = "publish"
	PhaseFinalize = "finalize"
)

// PluginConfig pairs a plugin with per-run setting overrides.
type PluginConfig struct {
	Plugin    Plugin
	Overrides map[string]any
}

// RunOptions controls a publish run.
type RunOptions struct {
	// DryRun stops after the validate phase; nothing is saved, copied,
	// registered or queued.
	DryRun bool
}

// RunSummary reports the outcome of one publish run.
type RunSummary struct {
	RunID string
	Tasks []*Task
}

// Rejected returns the tasks that failed acceptance or validation.
func (s *RunSummary) Rejected() []*Task {
	return s.inState(StateRejected)
}

// Failed returns the tasks that failed after publishing.
func (s *RunSummary) Failed() []*Task {
	return s.inState(StateFailed)
}

func (s *RunSummary) inState(state TaskState) []*Task {
	var matched []*Task
	for _, task := range s.Tasks {
		if task.State() == state {
			matched = append(matched, task)
		}
	}
	return matched
}

// Runner drives the publish lifecycle over an item tree. All phases run
// serially on the calling goroutine; the host session is a single shared
// mutable resource with exactly one mutator.
type Runner struct {
	plugins []PluginConfig
	logger  *slog.Logger
}

// NewRunner creates a runner over the given plugin configurations. Plugin
// order is execution order within each phase.
func NewRunner(logger *slog.Logger, plugins ...PluginConfig) *Runner {
	return &Runner{
		plugins: plugins,
		logger:  logging.NewComponentLogger(logger, "publish-runner"),
	}
}

// Run executes accept, validate, publish and finalize over the item tree.
// Any validation rejection blocks the publish phase for the whole run, so a
// partially valid tree never publishes half its items. Failures after the
// publish phase are reported in the summary without rollback.
func (r *Runner) Run(ctx context.Context, root *Item, opts RunOptions) (*RunSummary, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	summary := &RunSummary{RunID: runID}
	summary.Tasks = r.acceptPhase(ctx, root)
	logger.Info("publish run started",
		logging.Int("tasks", len(summary.Tasks)),
		logging.Bool("dry_run", opts.DryRun))

	if err := r.validatePhase(ctx, summary); err != nil {
		return summary, err
	}
	if opts.DryRun {
		logger.Info("dry run complete, skipping publish")
		return summary, nil
	}

	if err := r.publishPhase(ctx, summary); err != nil {
		return summary, err
	}
	err := r.finalizePhase(ctx, summary)

	logger.Info("publish run complete",
		logging.Int("finalized", len(summary.inState(StateFinalized))),
		logging.Int("failed", len(summary.Failed())))
	return summary, err
}

// acceptPhase walks the tree and builds one task per plugin whose filters
// match the item type. Accept errors and negative verdicts both leave the
// task rejected so the summary accounts for every pairing.
func (r *Runner) acceptPhase(ctx context.Context, root *Item) []*Task {
	ctx = services.WithPhase(ctx, PhaseAccept)
	var tasks []*Task

	root.Walk(func(item *Item) {
		for _, cfg := range r.plugins {
			plugin := cfg.Plugin
			if !MatchesFilters(plugin.ItemFilters(), item.Type) {
				continue
			}
			settings := ResolveSettings(plugin.SettingSpecs(), cfg.Overrides)
			task := NewTask(plugin, item, settings)
			tasks = append(tasks, task)

			taskCtx := services.WithItem(services.WithPlugin(ctx, plugin.Name()), item.Name)
			acceptance, err := plugin.Accept(taskCtx, settings, item)
			if err != nil {
				task.reject(err)
				r.logPhaseFailure(taskCtx, PhaseAccept, err)
				continue
			}
			if !acceptance.Accepted {
				task.reject(nil)
				continue
			}
			if err := task.transition(StateAccepted); err != nil {
				task.reject(err)
				continue
			}
			task.Checked = acceptance.Checked
		}
	})
	return tasks
}

// validatePhase validates every checked task. It runs all tasks even after a
// failure so the user sees every problem at once, then reports the combined
// error.
func (r *Runner) validatePhase(ctx context.Context, summary *RunSummary) error {
	ctx = services.WithPhase(ctx, PhaseValidate)
	var errs []error

	for _, task := range summary.Tasks {
		if task.State() != StateAccepted || !task.Checked {
			continue
		}
		taskCtx := services.WithItem(services.WithPlugin(ctx, task.Plugin.Name()), task.Item.Name)
		if err := task.Plugin.Validate(taskCtx, task.Settings, task.Item); err != nil {
			task.reject(err)
			r.logPhaseFailure(taskCtx, PhaseValidate, err)
			errs = append(errs, fmt.Errorf("%s/%s: %w", task.Plugin.Name(), task.Item.Name, err))
			continue
		}
		if err := task.transition(StateValidated); err != nil {
			task.reject(err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// publishPhase publishes every validated task in order. The first failure
// stops the phase: later tasks frequently depend on earlier ones (render
// jobs need the session's publish record), so continuing would only cascade.
func (r *Runner) publishPhase(ctx context.Context, summary *RunSummary) error {
	ctx = services.WithPhase(ctx, PhasePublish)

	for _, task := range summary.Tasks {
		if task.State() != StateValidated {
			continue
		}
		taskCtx := services.WithItem(services.WithPlugin(ctx, task.Plugin.Name()), task.Item.Name)
		if err := task.Plugin.Publish(taskCtx, task.Settings, task.Item); err != nil {
			task.reject(err)
			r.logPhaseFailure(taskCtx, PhasePublish, err)
			return fmt.Errorf("%s/%s: %w", task.Plugin.Name(), task.Item.Name, err)
		}
		if err := task.transition(StatePublished); err != nil {
			return err
		}
	}
	return nil
}

// finalizePhase finalizes every published task. Failures are recorded on the
// task but the phase keeps going: the publish records already exist and the
// remaining tasks deserve their cleanup.
func (r *Runner) finalizePhase(ctx context.Context, summary *RunSummary) error {
	ctx = services.WithPhase(ctx, PhaseFinalize)
	var errs []error

	for _, task := range summary.Tasks {
		if task.State() != StatePublished {
			continue
		}
		taskCtx := services.WithItem(services.WithPlugin(ctx, task.Plugin.Name()), task.Item.Name)
		if err := task.Plugin.Finalize(taskCtx, task.Settings, task.Item); err != nil {
			task.fail(err)
			r.logPhaseFailure(taskCtx, PhaseFinalize, err)
			errs = append(errs, fmt.Errorf("%s/%s: %w", task.Plugin.Name(), task.Item.Name, err))
			continue
		}
		if err := task.transition(StateFinalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) logPhaseFailure(ctx context.Context, phase string, err error) {
	logger := logging.WithContext(ctx, r.logger)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "phase_failure"),
		logging.Error(err),
	}
	if remediation, ok := RemediationFor(err); ok {
		attrs = append(attrs, logging.String(logging.FieldAction,
			fmt.Sprintf("%s: %s", remediation.Label, remediation.Path)))
	}
	logger.Error(phase+" failed", logging.Args(attrs...)...)
}
