package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWorksheetCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worksheet",
		Short: "Manage worksheets",
	}
	cmd.AddCommand(newWorksheetListCmd(cfgPath))
	cmd.AddCommand(newWorksheetCreateCmd(cfgPath))
	cmd.AddCommand(newWorksheetRenameCmd(cfgPath))
	cmd.AddCommand(newWorksheetDeleteCmd(cfgPath))
	cmd.AddCommand(newWorksheetShowCmd(cfgPath))
	return cmd
}

func newWorksheetListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List worksheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			col := a.manager.Collection()
			out := cmd.OutOrStdout()
			if len(col.Worksheets) == 0 {
				_, _ = fmt.Fprintln(out, "no worksheets")
				return nil
			}
			for _, ws := range col.Worksheets {
				_, _ = fmt.Fprintf(out, "%s\t%s\t%d tabs\n", ws.ID, ws.Name, len(ws.Tabs))
			}
			return nil
		},
	}
}

func newWorksheetCreateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a worksheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			ws, err := a.manager.CreateWorksheet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created worksheet %s (%s)\n", ws.Name, ws.ID)
			return nil
		},
	}
}

func newWorksheetRenameCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a worksheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.manager.RenameWorksheet(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "renamed worksheet %s\n", args[0])
			return nil
		},
	}
}

func newWorksheetDeleteCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a worksheet and its tabs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.manager.DeleteWorksheet(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted worksheet %s\n", args[0])
			return nil
		},
	}
}

func newWorksheetShowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a worksheet and its tabs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.manager.Select(args[0]); err != nil {
				return err
			}
			ws, _ := a.manager.Selected()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s\t%s\tcreated %s\n", ws.ID, ws.Name, ws.Created)
			for idx, tab := range ws.Tabs {
				_, _ = fmt.Fprintf(out, "%d) %s\t%s\n", idx, tab.DisplayName(), tab.URL)
			}
			return nil
		},
	}
}
