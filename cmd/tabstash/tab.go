package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTabCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tab",
		Short: "Manage tabs within a worksheet",
	}
	cmd.AddCommand(newTabAddCmd(cfgPath))
	cmd.AddCommand(newTabRemoveCmd(cfgPath))
	return cmd
}

func newTabAddCmd(cfgPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add <worksheet-id> <url>",
		Short: "Add a tab to a worksheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			tab, err := a.manager.AddTab(cmd.Context(), args[0], args[1], name)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added tab %s (%s)\n", tab.DisplayName(), tab.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name for the tab")
	return cmd
}

func newTabRemoveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <worksheet-id> <index>",
		Short: "Remove a tab from a worksheet by index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.New("tab index must be an integer")
			}
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.manager.DeleteTab(cmd.Context(), args[0], index); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed tab %d from worksheet %s\n", index, args[0])
			return nil
		},
	}
}
