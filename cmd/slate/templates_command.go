package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"slate/internal/template"
)

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	templatesCmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect the path template registry",
	}
	templatesCmd.AddCommand(newTemplatesListCommand(ctx))
	templatesCmd.AddCommand(newTemplatesCheckCommand(ctx))
	return templatesCmd
}

func newTemplatesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the defined templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.loadTemplates()
			if err != nil {
				return err
			}
			if registry.Len() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No templates defined; publishes run without template checks")
				return nil
			}

			var rows [][]string
			for _, name := range registry.Names() {
				tmpl, err := registry.Get(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{name, tmpl.Pattern})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Template", "Pattern"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newTemplatesCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <template> <path>",
		Short: "Check whether a path conforms to a template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.loadTemplates()
			if err != nil {
				return err
			}
			tmpl, err := registry.Get(args[0])
			if err != nil {
				return err
			}

			path := template.Normalize(args[1])
			out := cmd.OutOrStdout()
			fields, err := tmpl.Fields(path)
			if err != nil {
				fmt.Fprintf(out, "No match: %s\n", path)
				fmt.Fprintf(out, "Pattern:  %s\n", tmpl.Pattern)
				return nil
			}

			fmt.Fprintf(out, "Match: %s\n", path)
			keys := make([]string, 0, len(fields))
			for key := range fields {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(out, "  %s = %v\n", key, fields[key])
			}
			return nil
		},
	}
}
