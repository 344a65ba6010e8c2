package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"github.com/germanamz/modelgate/pkg/modeladapter"
	"github.com/germanamz/modelgate/pkg/models"
)

const labelWidth = 28

// statusLabel colours a status for the terminal.
func statusLabel(s models.Status) string {
	switch s {
	case models.StatusOnline:
		return onlineStyle.Render(s.String())
	case models.StatusOffline:
		return offlineStyle.Render(s.String())
	default:
		return unknownStyle.Render(s.String())
	}
}

// capabilities summarizes what a model can do, e.g. "stream vision files".
func capabilities(m *models.Model) string {
	var caps []string
	if m.IsStreamable() {
		caps = append(caps, "stream")
	}
	if m.CanSeeImages() {
		caps = append(caps, "vision")
	}
	if m.CanReadFiles() {
		caps = append(caps, "files")
	}
	if m.HasTool(models.ToolWebSearch) {
		caps = append(caps, "search")
	}
	if len(caps) == 0 {
		return dimStyle.Render("-")
	}
	return strings.Join(caps, " ")
}

func providerOf(m *models.Model) string {
	p, err := m.Provider()
	if err != nil {
		return "?"
	}
	return p.ID
}

// modelsTable renders the catalogue. statuses may be nil.
func modelsTable(cat *models.Map, statuses map[string]models.Status) string {
	headers := []string{"MODEL", "LABEL", "PROVIDER", "CAPABILITIES", "EXT"}
	if statuses != nil {
		headers = append(headers, "STATUS")
	}

	defaults := make(map[string][]string)
	for _, capability := range []string{"text", "vision", "image", "title"} {
		if m := cat.Default(capability); m != nil {
			defaults[m.ID()] = append(defaults[m.ID()], capability)
		}
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.PaddingRight(1)
			}
			return cellStyle
		})

	for _, m := range cat.Models().All() {
		id := m.ID()
		if d := defaults[id]; len(d) > 0 {
			slices.Sort(d)
			id += dimStyle.Render(" (default " + strings.Join(d, ",") + ")")
		}

		ext := ""
		if m.AllowedExternally() {
			ext = "yes"
		}

		row := []string{id, runewidth.Truncate(m.Label(), labelWidth, "…"), providerOf(m), capabilities(m), ext}
		if statuses != nil {
			row = append(row, statusLabel(statuses[m.ID()]))
		}
		t.Row(row...)
	}

	return t.String()
}

// renderMarkdown converts markdown text to terminal-formatted output. It
// returns the input unchanged when rendering fails.
func renderMarkdown(text string, width int) string {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// fmtTokens formats a token count for display, using k/M suffixes.
func fmtTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// rateLimitLine summarizes the last rate limit headers seen from a provider.
func rateLimitLine(provider string, info *modeladapter.RateLimitInfo, now time.Time) string {
	line := fmt.Sprintf("%s: %s requests, %s tokens remaining", provider,
		fmtTokens(info.RemainingRequests), fmtTokens(info.RemainingTokens))
	if !info.Exhausted(now) {
		return dimStyle.Render(line)
	}

	reset := info.RequestsReset
	if info.TokensReset.After(reset) {
		reset = info.TokensReset
	}
	return offlineStyle.Render(line + ", exhausted until " + reset.Format(time.Kitchen))
}
