package observability

import (
	"fmt"
	"sort"
	"time"
)

// SessionUsage counts how often a session was loaded.
type SessionUsage struct {
	SessionID string `json:"session_id"`
	Loads     int    `json:"loads"`
}

// Metrics holds usage metrics derived from the event log.
type Metrics struct {
	SessionsCreated  int            `json:"sessions_created"`
	SessionsUpdated  int            `json:"sessions_updated"`
	SessionsDeleted  int            `json:"sessions_deleted"`
	SessionsLoaded   int            `json:"sessions_loaded"`
	SessionsImported int            `json:"sessions_imported"`
	SessionsExported int            `json:"sessions_exported"`
	LoopsAdded       int            `json:"loops_added"`
	LoopsRemoved     int            `json:"loops_removed"`
	ExportsByType    map[string]int `json:"exports_by_type"`
	TopSessions      []SessionUsage `json:"top_sessions,omitempty"`
	EventCount       int            `json:"event_count"`
	OldestEvent      *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent      *time.Time     `json:"newest_event,omitempty"`
}

// TopSessionsLimit caps Metrics.TopSessions.
const TopSessionsLimit = 5

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
// A zero since covers the whole log.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	filter := EventFilter{}
	if !since.IsZero() {
		filter.Since = &since
	}
	events, err := mc.eventLog.Read(filter)
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}
	return Aggregate(events), nil
}

// Aggregate folds events into metrics. Events are expected in log order.
func Aggregate(events []Event) *Metrics {
	m := &Metrics{ExportsByType: make(map[string]int)}
	m.EventCount = len(events)
	loads := make(map[string]int)

	for i, event := range events {
		t := event.Time
		if i == 0 || t.Before(*m.OldestEvent) {
			m.OldestEvent = &t
		}
		if m.NewestEvent == nil || t.After(*m.NewestEvent) {
			m.NewestEvent = &t
		}

		switch event.Type {
		case "session.created":
			m.SessionsCreated++
		case "session.updated":
			m.SessionsUpdated++
		case "session.deleted":
			m.SessionsDeleted++
		case "session.loaded":
			m.SessionsLoaded++
			if id := event.SessionID(); id != "" {
				loads[id]++
			}
		case "session.imported":
			m.SessionsImported++
		case "session.exported":
			// One export event may cover several sessions.
			m.SessionsExported += intField(event.Data, "count", 1)
			if kind, ok := event.Data["type"].(string); ok {
				m.ExportsByType[kind]++
			}
		case "loop.added":
			m.LoopsAdded++
		case "loop.removed":
			m.LoopsRemoved++
		}
	}

	m.TopSessions = topSessions(loads, TopSessionsLimit)
	return m
}

func topSessions(loads map[string]int, limit int) []SessionUsage {
	usage := make([]SessionUsage, 0, len(loads))
	for id, n := range loads {
		usage = append(usage, SessionUsage{SessionID: id, Loads: n})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Loads != usage[j].Loads {
			return usage[i].Loads > usage[j].Loads
		}
		return usage[i].SessionID < usage[j].SessionID
	})
	if len(usage) > limit {
		usage = usage[:limit]
	}
	return usage
}

// intField reads a numeric field that may have been decoded from JSON as float64.
func intField(data map[string]any, key string, fallback int) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
