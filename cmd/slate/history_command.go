package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent publishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListPublishes(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No publishes recorded")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				entity := ""
				if rec.EntityType != "" {
					entity = fmt.Sprintf("%s %d", rec.EntityType, rec.EntityID)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", rec.ID),
					rec.Name,
					fmt.Sprintf("%d", rec.Version),
					entity,
					rec.PublishPath,
					rec.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Version", "Entity", "Publish Path", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of publishes to show")
	return cmd
}
