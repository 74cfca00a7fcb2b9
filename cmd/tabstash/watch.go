package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handydandy/tabstash/internal/tabstash"
)

func newWatchCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the local slot file and reprint worksheets on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			path, err := slotFilePath(a.cfg.Storage.SlotDSN)
			if err != nil {
				return err
			}

			printWorksheets := func() {
				a.manager.Load(cmd.Context())
				col := a.manager.Collection()
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "-- %d worksheets --\n", len(col.Worksheets))
				for _, ws := range col.Worksheets {
					_, _ = fmt.Fprintf(out, "%s\t%s\t%d tabs\n", ws.ID, ws.Name, len(ws.Tabs))
				}
			}
			printWorksheets()

			watcher, err := tabstash.WatchSlotFile(path, printWorksheets, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = watcher.Close() }()

			<-cmd.Context().Done()
			return nil
		},
	}
}

// slotFilePath extracts the file path from a file-backed slot DSN; other
// backend schemes have no file to follow.
func slotFilePath(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", fmt.Errorf("storage.slot_dsn is empty")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(parsed.Scheme) {
	case "":
		return dsn, nil
	case "file":
		path := parsed.Path
		if path == "" {
			path = parsed.Opaque
		}
		if path == "" {
			return "", fmt.Errorf("file slot DSN %q has no path", dsn)
		}
		return path, nil
	default:
		return "", fmt.Errorf("watch requires a file-backed slot, got scheme %q", parsed.Scheme)
	}
}
