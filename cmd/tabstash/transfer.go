package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/handydandy/tabstash/internal/tabstash"
)

func newExportCmd(cfgPath *string) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all worksheets as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			data, err := a.manager.Export()
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write export to file instead of stdout")
	return cmd
}

func newImportCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all worksheets from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			col, err := tabstash.ParseImport(data)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.manager.Replace(cmd.Context(), col); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d worksheets\n", len(col.Worksheets))
			return nil
		},
	}
}
