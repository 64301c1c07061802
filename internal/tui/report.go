package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/updater"
	"github.com/felixgeelhaar/dyna/internal/tui/ui"
)

// StateLabel turns an entry state such as "up_to_date" into "Up To Date".
func StateLabel(s updater.EntryState) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(string(s), "_", " "))
}

// RenderPlugins renders the store snapshot as a table.
func RenderPlugins(records []plugin.Record) string {
	styles := ui.DefaultStyles()
	if len(records) == 0 {
		return styles.Help.Render("No plugins use dyna.")
	}

	t := newTable(styles, "PLUGIN", "VERSION", "SOURCE", "FLAGS")
	for _, r := range records {
		t.Row(r.Key(), strconv.Itoa(r.Version), source(r), flags(r))
	}
	return t.String()
}

// RenderReport renders the outcomes of a cycle as a table with a summary.
func RenderReport(report *updater.CycleReport) string {
	styles := ui.DefaultStyles()
	if report == nil || len(report.Outcomes) == 0 {
		return styles.Help.Render("No plugins were checked.")
	}

	t := newTable(styles, "PLUGIN", "STATE", "DETAIL")
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return styles.Header
		}
		if col == 1 {
			return stateStyle(styles, report.Outcomes[row].State)
		}
		return styles.Cell
	})
	for _, o := range report.Outcomes {
		t.Row(o.Record.Key(), StateLabel(o.State), detail(o))
	}

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(styles.Help.Render(fmt.Sprintf("%d loaded, %d up to date, %d skipped, %d failed in %s",
		report.Count(updater.StateLoaded),
		report.Count(updater.StateUpToDate),
		report.Count(updater.StateDevSkipped),
		report.Count(updater.StateFailed),
		report.Duration().Round(time.Millisecond),
	)))
	if report.RestartRequested {
		b.WriteString("\n")
		b.WriteString(styles.Warning.Render("A restart was requested by an updated plugin."))
	}
	return b.String()
}

func newTable(styles ui.Styles, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		})
}

func stateStyle(styles ui.Styles, s updater.EntryState) lipgloss.Style {
	switch s {
	case updater.StateLoaded:
		return styles.Success.PaddingRight(2)
	case updater.StateFailed:
		return styles.Error.PaddingRight(2)
	case updater.StateDevSkipped:
		return styles.Warning.PaddingRight(2)
	default:
		return styles.Cell
	}
}

func source(r plugin.Record) string {
	if r.Forge != "" {
		return r.Forge + "/" + r.Repo
	}
	return r.Repo
}

func flags(r plugin.Record) string {
	var f []string
	if r.Dev {
		f = append(f, "dev")
	}
	if r.ShouldRestart {
		f = append(f, "restart")
	}
	if r.Target != "" {
		f = append(f, "target="+r.Target)
	}
	return strings.Join(f, ",")
}

func detail(o updater.Outcome) string {
	switch {
	case o.Err != nil:
		return o.Err.Error()
	case o.Manifest != nil && o.State == updater.StateLoaded:
		return fmt.Sprintf("%d → %d", o.Record.Version, o.Manifest.Latest)
	case o.Manifest != nil:
		return fmt.Sprintf("latest %d", o.Manifest.Latest)
	default:
		return ""
	}
}
