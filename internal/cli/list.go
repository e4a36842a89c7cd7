package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"zpaqng/internal/util"
)

func init() {
	listCmd.SilenceErrors = true
	listCmd.SilenceUsage = true
}

var listCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "List the paths live at a version, folding tombstones forward",
	Long: `List folds every version from 1 up to the requested one (the latest
committed version by default) and prints the paths still present,
skipping anything later tombstoned by a remove.

Examples:
  zpaqng list backup.zpaq
  zpaqng list backup.zpaq --version 2`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var (
	listPassword      string
	listPasswordStdin bool
	listNoPassword    bool
	listVersion       int
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listPassword, "password", "p", "", "Archive password")
	listCmd.Flags().BoolVarP(&listPasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	listCmd.Flags().BoolVar(&listNoPassword, "no-password", false, "Open the archive as unencrypted")
	listCmd.Flags().IntVar(&listVersion, "version", 0, "Version to list (default: latest)")
}

func runList(cmd *cobra.Command, args []string) error {
	archivePath := args[0]
	a, err := openForCommand(archivePath, listPassword, listPasswordStdin, listNoPassword, false)
	if err != nil {
		return err
	}

	v := listVersion
	if v == 0 {
		v = len(a.Versions())
	}

	for _, rec := range a.List(v) {
		fmt.Fprintf(os.Stdout, "%12s  %s  %s\n", util.Sizeify(rec.Size), time.Unix(rec.ModTime, 0).Format(time.RFC3339), rec.Path)
	}
	return nil
}
