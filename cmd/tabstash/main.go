package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("tabstash command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "tabstash",
		Short:         "Worksheet and tab collections with local and remote persistence",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	root.AddCommand(newWorksheetCmd(&cfgPath))
	root.AddCommand(newTabCmd(&cfgPath))
	root.AddCommand(newWatchCmd(&cfgPath))
	root.AddCommand(newExportCmd(&cfgPath))
	root.AddCommand(newImportCmd(&cfgPath))
	root.AddCommand(newLoginCmd(&cfgPath))
	root.AddCommand(newLogoutCmd(&cfgPath))
	root.AddCommand(newWhoamiCmd(&cfgPath))
	root.AddCommand(newConfigCmd(&cfgPath))
	root.AddCommand(newVersionCmd())

	return root
}
