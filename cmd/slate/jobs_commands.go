package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"slate/internal/history"
	"slate/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and run the render job queue",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsRunCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			status := history.JobStatus(strings.ToLower(strings.TrimSpace(statusFilter)))
			list, err := store.ListJobs(cmd.Context(), status)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No render jobs")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				detail := job.ErrorMessage
				if detail == "" && job.SubmittedAt != nil {
					detail = "submitted " + job.SubmittedAt.Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{
					job.ID,
					job.Take,
					fmt.Sprintf("%d", len(job.Cameras)),
					yesNo(job.RenderLocal),
					string(job.Status),
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Job", "Take", "Cameras", "Local", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (queued, submitting, submitted, failed, review)")
	return cmd
}

func newJobsRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Submit queued render jobs to the farm",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Render.FarmURL) == "" {
				return errors.New("render.farm_url is not configured")
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			submitter, err := jobs.NewFarmSubmitter(cfg.Render.FarmURL, cfg.Render.APIKey)
			if err != nil {
				return err
			}
			lockPath := filepath.Join(cfg.Paths.StateDir, "jobs.lock")
			worker, err := jobs.NewWorker(store, submitter, ctx.notifier(), lockPath, ctx.ensureLogger())
			if err != nil {
				return err
			}

			result, err := worker.RunOnce(cmd.Context())
			if errors.Is(err, jobs.ErrWorkerBusy) {
				return errors.New("another jobs worker is already running")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted %d, failed %d\n", result.Submitted, result.Failed)
			return nil
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Requeue a failed or review render job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.UpdateJobStatus(cmd.Context(), args[0], history.JobStatusQueued, ""); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s requeued\n", args[0])
			return nil
		},
	}
}
