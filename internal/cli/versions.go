package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	versionsCmd.SilenceErrors = true
	versionsCmd.SilenceUsage = true
}

var versionsCmd = &cobra.Command{
	Use:   "versions <archive>",
	Short: "List committed versions and how many paths each one touched",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

var (
	versionsPassword      string
	versionsPasswordStdin bool
	versionsNoPassword    bool
)

func init() {
	rootCmd.AddCommand(versionsCmd)
	versionsCmd.Flags().StringVarP(&versionsPassword, "password", "p", "", "Archive password")
	versionsCmd.Flags().BoolVarP(&versionsPasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	versionsCmd.Flags().BoolVar(&versionsNoPassword, "no-password", false, "Open the archive as unencrypted")
}

func runVersions(cmd *cobra.Command, args []string) error {
	a, err := openForCommand(args[0], versionsPassword, versionsPasswordStdin, versionsNoPassword, false)
	if err != nil {
		return err
	}

	for _, rec := range a.Versions() {
		fmt.Fprintf(os.Stdout, "%4d  %s  %d path(s)\n", rec.ID, time.Unix(rec.Timestamp, 0).Format(time.RFC3339), len(rec.Paths))
	}
	return nil
}
