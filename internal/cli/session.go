package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/looper/internal/core"
	"github.com/valter-silva-au/looper/internal/timeutil"
	"github.com/valter-silva-au/looper/pkg/models"
)

var (
	sessionVideo       string
	sessionTitle       string
	sessionDuration    string
	sessionDescription string
	sessionTags        []string
	sessionName        string
	sessionSpeed       float64
	sessionSearch      string
	sessionVideoFilter string
	sessionRecentLimit int
	sessionDeleteYes   bool
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"s"},
	Short:   "Manage practice sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a session for a YouTube video",
	Long: `Create a new session. --video accepts a watch URL, a youtu.be or embed
link, or a bare 11-character video ID. --duration accepts seconds, mm:ss or
hh:mm:ss.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		videoID := core.ExtractVideoID(sessionVideo)
		if videoID == "" {
			return fmt.Errorf("identifiant de vidéo invalide: %q", sessionVideo)
		}
		duration, ok := timeutil.ParseFlexibleTime(sessionDuration)
		if !ok {
			return fmt.Errorf("durée invalide: %q", sessionDuration)
		}
		title := sessionTitle
		if strings.TrimSpace(title) == "" {
			title = videoID
		}

		session, err := Facade.CreateSession(core.CreateSessionParams{
			Name:          args[0],
			Description:   sessionDescription,
			Tags:          sessionTags,
			VideoID:       videoID,
			VideoTitle:    title,
			VideoURL:      core.BuildVideoURL(videoID),
			VideoDuration: duration,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %q créée (%s)\n", session.Name, session.ID)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		Facade.SetSearchQuery(sessionSearch)
		Facade.SetVideoFilter(core.ExtractVideoID(sessionVideoFilter))
		sessions := Facade.State().FilteredSessions

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "Aucune session.")
			return nil
		}
		fmt.Fprintln(out, renderTable(sessionHeaders, sessionRows(sessions), sessionAligns))
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session and its loops",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		session := lookupSession(args[0])
		if session == nil {
			return sessionNotFound(args[0])
		}
		printSession(cmd.OutOrStdout(), *session)
		return nil
	},
}

var sessionLoadCmd = &cobra.Command{
	Use:   "load <session-id>",
	Short: "Make a session the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		session, err := loadSession(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %q chargée\n", session.Name)
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:     "delete <session-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		session := lookupSession(args[0])
		if session == nil {
			return sessionNotFound(args[0])
		}
		if SessionMgr.Settings().ConfirmDelete && !sessionDeleteYes {
			if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Supprimer la session %q ?", session.Name)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Suppression annulée")
				return nil
			}
		}
		if err := Facade.DeleteSession(session.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %q supprimée\n", session.Name)
		return nil
	},
}

var sessionUpdateCmd = &cobra.Command{
	Use:   "update <session-id>",
	Short: "Change a session's metadata or global speed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		flags := cmd.Flags()
		var update models.SessionUpdate
		if flags.Changed("name") {
			update.Name = &sessionName
		}
		if flags.Changed("description") {
			update.Description = &sessionDescription
		}
		if flags.Changed("tag") {
			update.Tags = core.NormalizeTags(sessionTags)
			if update.Tags == nil {
				update.Tags = []string{}
			}
		}
		speedChanged := flags.Changed("speed")
		if update.IsEmpty() && !speedChanged {
			return fmt.Errorf("nothing to update (use --name, --description, --tag or --speed)")
		}

		session, err := loadSession(args[0])
		if err != nil {
			return err
		}
		if !update.IsEmpty() {
			if session, err = Facade.UpdateSession(update); err != nil {
				return err
			}
		}
		if speedChanged {
			if err := Facade.SetGlobalSpeed(sessionSpeed); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %q mise à jour\n", session.Name)
		return nil
	},
}

var sessionRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently loaded sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		sessions := SessionMgr.GetRecentSessions(sessionRecentLimit)
		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "Aucune session récente.")
			return nil
		}
		fmt.Fprintln(out, renderTable(sessionHeaders, sessionRows(sessions), sessionAligns))
		return nil
	},
}

var sessionPickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose a session interactively and load it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFacade(); err != nil {
			return err
		}
		id, err := runPicker(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if id == "" {
			return nil
		}
		session, err := loadSession(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %q chargée\n", session.Name)
		return nil
	},
}

func lookupSession(id string) *models.LooperSession {
	for _, s := range Facade.State().Sessions {
		if s.ID == id {
			cp := s.Clone()
			return &cp
		}
	}
	return nil
}

func sessionNotFound(id string) error {
	return fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
}

// loadSession makes id the facade's current session.
func loadSession(id string) (*models.LooperSession, error) {
	if !Facade.LoadSession(id) {
		return nil, sessionNotFound(id)
	}
	return Facade.State().CurrentSession, nil
}

func printSession(w io.Writer, s models.LooperSession) {
	fmt.Fprintf(w, "%s (%s)\n", s.Name, s.ID)
	if s.Description != "" {
		fmt.Fprintf(w, "  Description: %s\n", s.Description)
	}
	if len(s.Tags) > 0 {
		fmt.Fprintf(w, "  Tags:        %s\n", strings.Join(s.Tags, ", "))
	}
	fmt.Fprintf(w, "  Vidéo:       %s (%s)\n", s.VideoTitle, timeutil.FormatSecondsToMMSS(s.VideoDuration, false))
	fmt.Fprintf(w, "  URL:         %s\n", s.VideoURL)
	fmt.Fprintf(w, "  Vitesse:     %gx\n", s.GlobalPlaybackSpeed)
	fmt.Fprintf(w, "  Créée:       %s\n", ago(s.CreatedAt))
	fmt.Fprintf(w, "  Modifiée:    %s\n", ago(s.UpdatedAt))
	if len(s.Loops) == 0 {
		fmt.Fprintln(w, "\nAucune boucle.")
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTable(loopHeaders, loopRows(s.Loops, s.GlobalPlaybackSpeed), loopAligns))
}

// confirm asks a yes/no question; only an explicit yes returns true.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [o/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "o", "oui", "y", "yes":
		return true
	default:
		return false
	}
}

func init() {
	sessionCreateCmd.Flags().StringVar(&sessionVideo, "video", "", "YouTube URL or video ID")
	sessionCreateCmd.Flags().StringVar(&sessionTitle, "title", "", "Video title (defaults to the video ID)")
	sessionCreateCmd.Flags().StringVar(&sessionDuration, "duration", "", "Video duration (seconds, mm:ss or hh:mm:ss)")
	sessionCreateCmd.Flags().StringVar(&sessionDescription, "description", "", "Session description")
	sessionCreateCmd.Flags().StringSliceVar(&sessionTags, "tag", nil, "Tag (repeatable)")
	_ = sessionCreateCmd.MarkFlagRequired("video")
	_ = sessionCreateCmd.MarkFlagRequired("duration")

	sessionListCmd.Flags().StringVar(&sessionSearch, "search", "", "Filter by name, description or tag")
	sessionListCmd.Flags().StringVar(&sessionVideoFilter, "video", "", "Only sessions for this video (URL or ID)")

	sessionUpdateCmd.Flags().StringVar(&sessionName, "name", "", "New name")
	sessionUpdateCmd.Flags().StringVar(&sessionDescription, "description", "", "New description")
	sessionUpdateCmd.Flags().StringSliceVar(&sessionTags, "tag", nil, "Replace tags (repeatable)")
	sessionUpdateCmd.Flags().Float64Var(&sessionSpeed, "speed", 1, "Global playback speed")

	sessionRecentCmd.Flags().IntVarP(&sessionRecentLimit, "limit", "n", 0, "Number of sessions (default: history setting)")
	sessionDeleteCmd.Flags().BoolVarP(&sessionDeleteYes, "yes", "y", false, "Do not ask for confirmation")

	for _, c := range []*cobra.Command{sessionShowCmd, sessionLoadCmd, sessionDeleteCmd, sessionUpdateCmd} {
		c.ValidArgsFunction = completeSessionIDs
	}

	sessionCmd.AddCommand(sessionCreateCmd, sessionListCmd, sessionShowCmd, sessionLoadCmd,
		sessionDeleteCmd, sessionUpdateCmd, sessionRecentCmd, sessionPickCmd)
	rootCmd.AddCommand(sessionCmd)
}
