package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/looper/internal/core"
)

var (
	exportAll     bool
	exportIDs     []string
	exportDir     string
	importPreview bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to a JSON file",
	Long: `Export sessions to a timestamped JSON file. With one --id the file holds a
single session; with several --id flags, or --all, it holds a list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		if exportAll && len(exportIDs) > 0 {
			return fmt.Errorf("--all and --id are mutually exclusive")
		}
		dir := exportDir
		if dir == "" && Config != nil {
			dir = Config.ExportDir
		}
		if dir == "" {
			dir = "."
		}

		var (
			path string
			err  error
		)
		switch len(exportIDs) {
		case 0:
			path, err = Facade.ExportAll(dir)
		case 1:
			path, err = Facade.ExportSession(dir, exportIDs[0])
		default:
			path, err = Facade.ExportSelected(dir, exportIDs)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Export écrit dans %s\n", path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import sessions from a JSON export",
	Long: `Import sessions from a file produced by 'looper export' or by the legacy
format. Imported sessions get new IDs; use --preview to check a file and
see name or video conflicts without importing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if importPreview {
			preview, err := Facade.PreviewImportFile(args[0])
			if err != nil {
				return err
			}
			printPreview(out, preview)
			return nil
		}

		result, err := Facade.ImportFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, result.Message)
		for _, f := range result.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "  échec #%d %s: %s\n", f.Index+1, f.Name, f.Error)
		}
		return nil
	},
}

func printPreview(w io.Writer, p *core.ImportPreview) {
	if !p.Valid {
		fmt.Fprintln(w, "Fichier invalide:")
		for _, e := range p.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
		return
	}
	fmt.Fprintf(w, "Format: %s, %d session(s)\n", p.Kind, p.SessionsCount)
	rows := make([][]string, 0, len(p.Sessions))
	for _, s := range p.Sessions {
		rows = append(rows, []string{s.Name, s.VideoID, strconv.Itoa(s.LoopCount)})
	}
	fmt.Fprintln(w, renderTable([]string{"NOM", "VIDÉO", "BOUCLES"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight}))

	if len(p.Errors) > 0 {
		fmt.Fprintln(w, "Erreurs:")
		for _, e := range p.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
	if len(p.Conflicts) > 0 {
		fmt.Fprintln(w, "Conflits:")
		for _, c := range p.Conflicts {
			fmt.Fprintf(w, "  [%s] %s. %s\n", c.Severity, c.Description, c.Recommendation)
		}
	}
}

func init() {
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every session (default)")
	exportCmd.Flags().StringSliceVar(&exportIDs, "id", nil, "Session to export (repeatable)")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Output directory (default: export.dir setting)")
	_ = exportCmd.RegisterFlagCompletionFunc("id", func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return sessionIDCandidates(toComplete), cobra.ShellCompDirectiveNoFileComp
	})
	_ = exportCmd.MarkFlagDirname("dir")

	importCmd.Flags().BoolVar(&importPreview, "preview", false, "Validate and show conflicts without importing")
	importCmd.ValidArgsFunction = func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
	}

	rootCmd.AddCommand(exportCmd, importCmd)
}
