package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/looper/internal/observability"
)

var (
	statsJSON  bool
	statsSince string

	eventsType    string
	eventsSession string
	eventsSince   string
	eventsLimit   int
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"metrics"},
	Short:   "Display usage statistics",
	Long: `Display usage statistics derived from the event log: sessions created,
loaded, imported and exported, loops added and removed, and the most
loaded sessions.

--since accepts 7d, 24h or "all".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log unavailable)")
		}

		sinceTime, err := parseSinceDuration(statsSince, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if statsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if sinceTime.IsZero() {
			fmt.Fprintln(out, "Statistiques (tout l'historique)")
		} else {
			fmt.Fprintf(out, "Statistiques (depuis le %s)\n", sinceTime.Format("2006-01-02"))
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %-24s %d\n", "Événements:", metrics.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Sessions créées:", metrics.SessionsCreated)
		fmt.Fprintf(out, "  %-24s %d\n", "Sessions modifiées:", metrics.SessionsUpdated)
		fmt.Fprintf(out, "  %-24s %d\n", "Sessions supprimées:", metrics.SessionsDeleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Sessions chargées:", metrics.SessionsLoaded)
		fmt.Fprintf(out, "  %-24s %d\n", "Sessions importées:", metrics.SessionsImported)
		fmt.Fprintf(out, "  %-24s %d\n", "Sessions exportées:", metrics.SessionsExported)
		fmt.Fprintf(out, "  %-24s %d\n", "Boucles ajoutées:", metrics.LoopsAdded)
		fmt.Fprintf(out, "  %-24s %d\n", "Boucles supprimées:", metrics.LoopsRemoved)

		if len(metrics.TopSessions) > 0 {
			names := sessionNames()
			fmt.Fprintln(out, "\n  Sessions les plus chargées:")
			for _, u := range metrics.TopSessions {
				label := u.SessionID
				if name, ok := names[u.SessionID]; ok {
					label = name
				}
				fmt.Fprintf(out, "    %-22s %s\n", label, humanize.Comma(int64(u.Loads))+" "+plural(u.Loads, "chargement"))
			}
		}

		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Dernière activité:", humanize.Time(*metrics.NewestEvent))
		}
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent entries of the event log",
	Long: `Show the most recent events, newest last. --type matches an exact type
such as session.loaded, or a family when it ends with a dot (loop.).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil {
			return fmt.Errorf("event log unavailable")
		}
		filter := observability.EventFilter{Type: eventsType, SessionID: eventsSession}
		if eventsSince != "" {
			since, err := parseSinceDuration(eventsSince, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			if !since.IsZero() {
				filter.Since = &since
			}
		}

		events, err := EventLog.Read(filter)
		if err != nil {
			return err
		}
		if eventsLimit > 0 && len(events) > eventsLimit {
			events = events[len(events)-eventsLimit:]
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "Aucun événement.")
			return nil
		}
		rows := make([][]string, 0, len(events))
		for _, e := range events {
			rows = append(rows, []string{e.Time.Local().Format("2006-01-02 15:04:05"), e.Type, e.SessionID()})
		}
		fmt.Fprintln(out, renderTable([]string{"DATE", "TYPE", "SESSION"}, rows, nil))
		return nil
	},
}

// parseSinceDuration turns "7d", "24h" or "all" into the start of the
// window. "all" yields the zero time.
func parseSinceDuration(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return now.AddDate(0, 0, -7), nil
	case s == "all":
		return time.Time{}, nil
	case strings.HasSuffix(s, "d"):
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days < 0 {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	case strings.HasSuffix(s, "h"):
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil || hours < 0 {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 24h or all)", s)
	}
}

func sessionNames() map[string]string {
	names := make(map[string]string)
	if Facade == nil {
		return names
	}
	for _, s := range Facade.State().Sessions {
		names[s.ID] = s.Name
	}
	return names
}

func plural(n int, word string) string {
	if n > 1 {
		return word + "s"
	}
	return word
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output metrics as JSON")
	statsCmd.Flags().StringVar(&statsSince, "since", "7d", "Time window (e.g. 7d, 24h, all)")

	eventsCmd.Flags().StringVar(&eventsType, "type", "", "Event type or family (e.g. session.loaded, loop.)")
	eventsCmd.Flags().StringVar(&eventsSession, "session", "", "Only events for this session")
	eventsCmd.Flags().StringVar(&eventsSince, "since", "", "Time window (e.g. 7d, 24h, all)")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 20, "Maximum number of events")
	_ = eventsCmd.RegisterFlagCompletionFunc("session", func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return sessionIDCandidates(toComplete), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(statsCmd, eventsCmd)
}
