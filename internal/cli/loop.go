package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/looper/internal/core"
	"github.com/valter-silva-au/looper/internal/timeutil"
)

var (
	loopName        string
	loopStart       string
	loopEnd         string
	loopColor       string
	loopRepetitions int
	loopSpeed       float64
	loopClearSpeed  bool
)

var loopCmd = &cobra.Command{
	Use:     "loop",
	Aliases: []string{"l"},
	Short:   "Manage the loops of a session",
}

var loopAddCmd = &cobra.Command{
	Use:   "add <session-id>",
	Short: "Add a loop to a session",
	Long: `Add a loop segment to a session. --start and --end accept seconds, mm:ss
or hh:mm:ss. Overlapping loops and loops past the end of the video are
accepted with a warning.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		start, err := parseTimeFlag("start", loopStart)
		if err != nil {
			return err
		}
		end, err := parseTimeFlag("end", loopEnd)
		if err != nil {
			return err
		}

		overrides := core.LoopOverrides{StartTime: &start, EndTime: &end}
		flags := cmd.Flags()
		if flags.Changed("name") {
			overrides.Name = &loopName
		}
		if flags.Changed("color") {
			overrides.Color = &loopColor
		}
		if flags.Changed("repetitions") {
			overrides.Repetitions = &loopRepetitions
		}
		if flags.Changed("speed") {
			overrides.PlaybackSpeed = &loopSpeed
		}

		if _, err := loadSession(args[0]); err != nil {
			return err
		}
		res, err := Facade.AddLoop(core.CreateDefaultLoop(overrides))
		if err != nil {
			return err
		}
		printWarnings(cmd.ErrOrStderr(), res.Warnings)
		fmt.Fprintf(cmd.OutOrStdout(), "Boucle %q ajoutée (%s, %s)\n", res.Loop.Name, res.Loop.ID, core.FormatDuration(res.Loop))
		return nil
	},
}

var loopUpdateCmd = &cobra.Command{
	Use:   "update <session-id> <loop-id>",
	Short: "Edit a loop",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		var edit core.LoopEdit
		flags := cmd.Flags()
		if flags.Changed("name") {
			edit.Name = &loopName
		}
		if flags.Changed("start") {
			start, err := parseTimeFlag("start", loopStart)
			if err != nil {
				return err
			}
			edit.StartTime = &start
		}
		if flags.Changed("end") {
			end, err := parseTimeFlag("end", loopEnd)
			if err != nil {
				return err
			}
			edit.EndTime = &end
		}
		if flags.Changed("color") {
			edit.Color = &loopColor
		}
		if flags.Changed("repetitions") {
			edit.Repetitions = &loopRepetitions
		}
		if flags.Changed("speed") {
			edit.PlaybackSpeed = &loopSpeed
		}
		edit.ClearSpeed = loopClearSpeed

		if _, err := loadSession(args[0]); err != nil {
			return err
		}
		res, err := Facade.UpdateLoop(args[1], edit)
		if err != nil {
			return err
		}
		printWarnings(cmd.ErrOrStderr(), res.Warnings)
		fmt.Fprintf(cmd.OutOrStdout(), "Boucle %q mise à jour\n", res.Loop.Name)
		return nil
	},
}

var loopListCmd = &cobra.Command{
	Use:     "list <session-id>",
	Aliases: []string{"ls"},
	Short:   "List the loops of a session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		session := lookupSession(args[0])
		if session == nil {
			return sessionNotFound(args[0])
		}
		out := cmd.OutOrStdout()
		if len(session.Loops) == 0 {
			fmt.Fprintln(out, "Aucune boucle.")
			return nil
		}
		fmt.Fprintln(out, renderTable(loopHeaders, loopRows(session.Loops, session.GlobalPlaybackSpeed), loopAligns))
		return nil
	},
}

var loopRemoveCmd = &cobra.Command{
	Use:     "remove <session-id> <loop-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a loop from a session",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		if _, err := loadSession(args[0]); err != nil {
			return err
		}
		if err := Facade.RemoveLoop(args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Boucle %s supprimée\n", args[1])
		return nil
	},
}

func parseTimeFlag(name, value string) (float64, error) {
	seconds, ok := timeutil.ParseFlexibleTime(value)
	if !ok {
		return 0, fmt.Errorf("--%s: temps invalide %q", name, value)
	}
	return seconds, nil
}

func printWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "Attention: %s\n", warning)
	}
}

func init() {
	for _, c := range []*cobra.Command{loopAddCmd, loopUpdateCmd} {
		c.Flags().StringVar(&loopName, "name", "", "Loop name")
		c.Flags().StringVar(&loopStart, "start", "", "Start time (seconds, mm:ss or hh:mm:ss)")
		c.Flags().StringVar(&loopEnd, "end", "", "End time (seconds, mm:ss or hh:mm:ss)")
		c.Flags().StringVar(&loopColor, "color", "", "Display color (#rrggbb)")
		c.Flags().IntVar(&loopRepetitions, "repetitions", 1, "Number of repetitions")
		c.Flags().Float64Var(&loopSpeed, "speed", 1, "Playback speed override")
	}
	_ = loopAddCmd.MarkFlagRequired("start")
	_ = loopAddCmd.MarkFlagRequired("end")
	loopUpdateCmd.Flags().BoolVar(&loopClearSpeed, "clear-speed", false, "Remove the loop's speed override")

	loopAddCmd.ValidArgsFunction = completeSessionIDs
	loopListCmd.ValidArgsFunction = completeSessionIDs
	loopUpdateCmd.ValidArgsFunction = completeSessionThenLoopIDs
	loopRemoveCmd.ValidArgsFunction = completeSessionThenLoopIDs

	loopCmd.AddCommand(loopAddCmd, loopUpdateCmd, loopListCmd, loopRemoveCmd)
	rootCmd.AddCommand(loopCmd)
}
