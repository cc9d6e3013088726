package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"slate/internal/publish"
	"slate/internal/tracking"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var (
		sessionPath     string
		entityType      string
		entityID        int64
		taskID          int64
		projectRoot     string
		workTemplate    string
		publishTemplate string
		forceTemplate   bool
		renderLocal     bool
		noRender        bool
		dryRun          bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the session and queue renders for its takes",
		Long: `Collects the open session (or a session file given with --session),
validates it against the pipeline templates, registers the publish with the
tracking system, advances the work file to the next version, and queues a
render job per take.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			session, err := ctx.openSession(sessionPath)
			if err != nil {
				return err
			}
			templates, err := ctx.loadTemplates()
			if err != nil {
				return err
			}
			tracker, err := ctx.trackingClient()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if !cmd.Flags().Changed("force-template") {
				forceTemplate = cfg.Publish.ForceTemplate
			}
			if !cmd.Flags().Changed("render-local") {
				renderLocal = cfg.Render.RenderLocal
			}
			if workTemplate == "" {
				workTemplate = cfg.Publish.WorkTemplate
			}
			if publishTemplate == "" {
				publishTemplate = cfg.Publish.PublishTemplate
			}

			sessionPlugin, err := publish.NewSessionPlugin(publish.SessionPluginDeps{
				Session:     session,
				Templates:   templates,
				Selector:    tracking.NewSelector(tracker, logger),
				Tracker:     tracker,
				Store:       store,
				ProjectRoot: strings.TrimSpace(projectRoot),
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			plugins := []publish.PluginConfig{{
				Plugin: sessionPlugin,
				Overrides: map[string]any{
					publish.SettingForceTemplate:   forceTemplate,
					publish.SettingWorkTemplate:    workTemplate,
					publish.SettingPublishTemplate: publishTemplate,
				},
			}}
			if !noRender {
				renderPlugin, err := publish.NewRenderPlugin(store, cfg.Render.RenderLocal, ctx.notifier(), logger)
				if err != nil {
					return err
				}
				plugins = append(plugins, publish.PluginConfig{
					Plugin:    renderPlugin,
					Overrides: map[string]any{publish.SettingRenderLocal: renderLocal},
				})
			}

			collector := publish.NewCollector(session, workTemplate, logger)
			pubCtx := tracking.Context{EntityType: entityType, EntityID: entityID, TaskID: taskID}
			root, err := collector.Collect(cmd.Context(), pubCtx)
			if err != nil {
				return err
			}

			runner := publish.NewRunner(logger, plugins...)
			summary, runErr := runner.Run(cmd.Context(), root, publish.RunOptions{DryRun: dryRun})

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderRunSummary(summary))
			printRemediations(out, summary)
			fmt.Fprintln(out, renderOutcome(summary, dryRun, runErr, isTerminal(out)))

			if runErr == nil && !dryRun {
				if notifier := ctx.notifier(); notifier != nil {
					versionNumber := int(root.Int64Property(publish.PropVersion))
					_ = notifier.NotifyPublishCompleted(cmd.Context(), root.Name,
						root.StringProperty(publish.PropPublishPath), versionNumber)
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&sessionPath, "session", "", "Publish a session file instead of the live application session")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "Tracking entity type (routine, mocaptake, asset, ...)")
	cmd.Flags().Int64Var(&entityID, "entity-id", 0, "Tracking entity id")
	cmd.Flags().Int64Var(&taskID, "task-id", 0, "Tracking task id")
	cmd.Flags().StringVar(&projectRoot, "project-root", "", "Root directory template paths resolve against")
	cmd.Flags().StringVar(&workTemplate, "work-template", "", "Work template name (overrides config and context)")
	cmd.Flags().StringVar(&publishTemplate, "publish-template", "", "Publish template name (overrides config and context)")
	cmd.Flags().BoolVar(&forceTemplate, "force-template", false, "Fail validation on template mismatches instead of warning")
	cmd.Flags().BoolVar(&renderLocal, "render-local", false, "Queue renders for local execution instead of the farm")
	cmd.Flags().BoolVar(&noRender, "no-render", false, "Publish the session without queueing render jobs")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop after validation; publish nothing")
	return cmd
}

func renderRunSummary(summary *publish.RunSummary) string {
	rows := make([][]string, 0, len(summary.Tasks))
	for _, task := range summary.Tasks {
		detail := ""
		if err := task.Err(); err != nil {
			detail = err.Error()
		}
		rows = append(rows, []string{
			task.Plugin.Name(),
			task.Item.Name,
			string(task.State()),
			detail,
		})
	}
	return renderTable(
		[]string{"Plugin", "Item", "State", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func renderOutcome(summary *publish.RunSummary, dryRun bool, runErr error, colorize bool) string {
	var (
		line  string
		color string
	)
	switch {
	case runErr != nil:
		line = fmt.Sprintf("Publish failed: %d task(s) did not complete", len(summary.Rejected())+len(summary.Failed()))
		color = ansiRed
	case dryRun:
		line = "Dry run complete; nothing was published"
		color = ansiYellow
	default:
		line = fmt.Sprintf("Publish complete: %d task(s)", len(summary.Tasks))
		color = ansiGreen
	}
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func printRemediations(out io.Writer, summary *publish.RunSummary) {
	for _, task := range summary.Rejected() {
		remediation, ok := publish.RemediationFor(task.Err())
		if !ok {
			continue
		}
		fmt.Fprintf(out, "Hint for %s: %s (%s)\n", task.Item.Name, remediation.Label, remediation.Path)
	}
}
