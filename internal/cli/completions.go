package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// completeSessionIDs completes the first positional argument with session
// IDs, described by the session name.
func completeSessionIDs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return sessionIDCandidates(toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeSessionThenLoopIDs completes <session-id> <loop-id>.
func completeSessionThenLoopIDs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return sessionIDCandidates(toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return loopIDCandidates(args[0], toComplete), cobra.ShellCompDirectiveNoFileComp
	default:
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeSpeedTargets completes <session-id> <loop-id|global>.
func completeSpeedTargets(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 1 {
		candidates := loopIDCandidates(args[0], toComplete)
		if strings.HasPrefix(globalSpeedTarget, toComplete) {
			candidates = append([]string{globalSpeedTarget + "\tSession speed"}, candidates...)
		}
		return candidates, cobra.ShellCompDirectiveNoFileComp
	}
	return completeSessionThenLoopIDs(cmd, args, toComplete)
}

func sessionIDCandidates(toComplete string) []string {
	if Facade == nil {
		return nil
	}
	var ids []string
	for _, s := range Facade.State().Sessions {
		if toComplete == "" || strings.HasPrefix(s.ID, toComplete) {
			ids = append(ids, s.ID+"\t"+s.Name)
		}
	}
	return ids
}

func loopIDCandidates(sessionID, toComplete string) []string {
	if Facade == nil {
		return nil
	}
	session := lookupSession(sessionID)
	if session == nil {
		return nil
	}
	var ids []string
	for _, l := range session.Loops {
		if toComplete == "" || strings.HasPrefix(l.ID, toComplete) {
			ids = append(ids, l.ID+"\t"+l.Name)
		}
	}
	return ids
}
