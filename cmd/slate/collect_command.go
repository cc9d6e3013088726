package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"slate/internal/publish"
	"slate/internal/tracking"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	var sessionPath string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "List the items a publish would operate on",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			session, err := ctx.openSession(sessionPath)
			if err != nil {
				return err
			}

			collector := publish.NewCollector(session, cfg.Publish.WorkTemplate, ctx.ensureLogger())
			root, err := collector.Collect(cmd.Context(), tracking.Context{})
			if err != nil {
				return err
			}

			var rows [][]string
			root.Walk(func(item *publish.Item) {
				detail := item.StringProperty(publish.PropPath)
				if item.Type == publish.ItemTypeTake {
					detail = strings.Join(selectionNames(item.CameraSelection()), ", ")
				}
				rows = append(rows, []string{item.Type, item.Name, detail})
			})

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Type", "Name", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionPath, "session", "", "Collect from a session file instead of the live application session")
	return cmd
}

func selectionNames(selection map[string]bool) []string {
	names := make([]string, 0, len(selection))
	for name := range selection {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
