package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect the session store",
}

var storageInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show where sessions are stored and how much space they use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		info, err := SessionMgr.GetStorageInfo()
		if err != nil {
			return err
		}
		used := uint64(0)
		if info.UsedBytes > 0 {
			used = uint64(info.UsedBytes)
		}

		out := cmd.OutOrStdout()
		if BasePath != "" {
			fmt.Fprintf(out, "  %-14s %s\n", "Dossier:", BasePath)
		}
		fmt.Fprintf(out, "  %-14s %s\n", "Backend:", info.Backend)
		fmt.Fprintf(out, "  %-14s %s\n", "Emplacement:", info.Location)
		fmt.Fprintf(out, "  %-14s %s\n", "Taille:", humanize.Bytes(used))
		fmt.Fprintf(out, "  %-14s %s\n", "Sessions:", humanize.Comma(int64(info.SessionCount)))
		fmt.Fprintf(out, "  %-14s %s\n", "Boucles:", humanize.Comma(int64(info.LoopCount)))
		fmt.Fprintf(out, "  %-14s %d\n", "Historique:", info.HistoryCount)
		return nil
	},
}

func init() {
	storageCmd.AddCommand(storageInfoCmd)
	rootCmd.AddCommand(storageCmd)
}
