package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

const globalSpeedTarget = "global"

var speedCmd = &cobra.Command{
	Use:   "speed",
	Short: "Adjust playback speeds",
}

var speedSetCmd = &cobra.Command{
	Use:   "set <session-id> <loop-id|global> <speed>",
	Short: "Set the global speed or a loop's speed",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		speed, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("vitesse invalide: %q", args[2])
		}
		if _, err := loadSession(args[0]); err != nil {
			return err
		}

		target := args[1]
		if target == globalSpeedTarget {
			err = Facade.SetGlobalSpeed(speed)
		} else {
			err = Facade.SetLoopSpeed(target, speed)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Vitesse %s: %gx\n", target, speed)
		return nil
	},
}

var speedResetCmd = &cobra.Command{
	Use:   "reset <session-id>",
	Short: "Reset the global speed and clear every loop override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		if _, err := loadSession(args[0]); err != nil {
			return err
		}
		if err := Facade.ResetSpeeds(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Vitesses réinitialisées")
		return nil
	},
}

func init() {
	speedSetCmd.ValidArgsFunction = completeSpeedTargets
	speedResetCmd.ValidArgsFunction = completeSessionIDs
	speedCmd.AddCommand(speedSetCmd, speedResetCmd)
	rootCmd.AddCommand(speedCmd)
}
