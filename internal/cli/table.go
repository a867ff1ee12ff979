package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/valter-silva-au/looper/internal/core"
	"github.com/valter-silva-au/looper/internal/timeutil"
	"github.com/valter-silva-au/looper/pkg/models"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func sessionRows(sessions []models.LooperSession) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		active := ""
		if s.IsActive {
			active = "*"
		}
		rows = append(rows, []string{
			active,
			s.ID,
			s.Name,
			s.VideoTitle,
			strconv.Itoa(len(s.Loops)),
			timeutil.FormatSecondsToMMSS(s.VideoDuration, false),
			ago(s.UpdatedAt),
		})
	}
	return rows
}

var sessionHeaders = []string{"", "ID", "NOM", "VIDÉO", "BOUCLES", "DURÉE", "MODIFIÉE"}
var sessionAligns = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}

func loopRows(loops []models.LoopSegment, global float64) [][]string {
	rows := make([][]string, 0, len(loops))
	for i, l := range loops {
		speed := fmt.Sprintf("%gx", global)
		if l.PlaybackSpeed != nil {
			speed = fmt.Sprintf("%gx", *l.PlaybackSpeed)
		}
		reps := "1"
		if l.Repetitions != nil {
			reps = strconv.Itoa(*l.Repetitions)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			l.ID,
			l.Name,
			timeutil.FormatSecondsToMMSS(l.StartTime, false),
			timeutil.FormatSecondsToMMSS(l.EndTime, false),
			core.FormatDuration(l),
			speed,
			reps,
		})
	}
	return rows
}

var loopHeaders = []string{"#", "ID", "NOM", "DÉBUT", "FIN", "DURÉE", "VITESSE", "RÉP."}
var loopAligns = []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}

// ago renders t relative to now; the zero time renders as "-".
func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
