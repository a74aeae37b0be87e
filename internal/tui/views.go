package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/explain"
)

var (
	accent = lipgloss.Color("#7C3AED")
	danger = lipgloss.Color("#DC2626")
	safe   = lipgloss.Color("#16A34A")
	muted  = lipgloss.Color("#6B7280")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle  = lipgloss.NewStyle().Width(16).Foreground(muted)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
	errorStyle  = lipgloss.NewStyle().Foreground(danger)
	noticeStyle = lipgloss.NewStyle().Foreground(safe)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2).
			MarginRight(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(muted).
			Padding(0, 1)
)

func newTable() table.Model {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Type", Width: 20},
		{Title: "Location", Width: 24},
		{Title: "Amount", Width: 14},
		{Title: "Timestamp", Width: 16},
		{Title: "Status", Width: 10},
		{Title: "Score", Width: 6},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(muted).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("#FFFFFF")).Background(accent)
	t.SetStyles(s)
	return t
}

func (m *Model) refreshTable() {
	view, err := m.state.View()
	if err != nil {
		m.table.SetRows(nil)
		return
	}

	rows := make([]table.Row, len(view.Records))
	for i, r := range view.Records {
		amount := "N/A"
		if r.Kind != domain.KindBehavior {
			amount = "₹" + explain.FormatAmount(r.Amount)
		}
		rows[i] = table.Row{
			r.ID,
			r.MerchantCategory,
			r.Location,
			amount,
			r.Timestamp,
			string(r.FraudStatus),
			fmt.Sprintf("%.2f", r.Probability),
		}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// refreshDetail renders the explanation of the selected record.
func (m *Model) refreshDetail() {
	row := m.table.SelectedRow()
	if row == nil {
		m.detail = ""
		return
	}
	rec, err := m.state.Ledger.Get(row[0])
	if err != nil {
		m.detail = ""
		return
	}
	m.detail = RenderRecord(m.renderer, rec)
}

// RenderRecord formats a record's explanations as markdown, rendered through
// r when it is set.
func RenderRecord(r *glamour.TermRenderer, rec domain.ResultRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s · %s · %s\n\n", rec.ID, rec.Classification, rec.RiskLevel)
	fmt.Fprintf(&b, "%s\n\n", rec.Summary)
	fmt.Fprintf(&b, "### Why\n\n%s\n\n", bullets(rec.Explanation))
	fmt.Fprintf(&b, "### Key factors\n\n%s\n", bullets(rec.DetailedExplanation))
	md := b.String()

	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// bullets turns "•" lines into markdown list items.
func bullets(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "•"); ok {
			lines[i] = "-" + rest
		}
	}
	return strings.Join(lines, "\n")
}

// NewRenderer builds a markdown renderer wrapped at width. An empty style
// picks one from the terminal background.
func NewRenderer(width int, style string) (*glamour.TermRenderer, error) {
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	return glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
}

// View renders the dashboard.
func (m Model) View() string {
	sections := []string{
		m.renderHeader(),
		m.renderSummary(),
		m.renderForm(),
	}

	if m.state.Analyzing {
		sections = append(sections, m.progress.View()+"\n"+mutedStyle.Render(m.state.ProgressMessage))
	}
	if m.state.LastError != "" {
		sections = append(sections, errorStyle.Render("✗ "+m.state.LastError))
	} else if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}

	sections = append(sections,
		mutedStyle.Render(fmt.Sprintf("Status: %s  Location: %s", m.state.StatusFilter, m.state.LocationFilter)),
		m.table.View(),
	)
	if m.detail != "" {
		sections = append(sections, panelStyle.Width(max(m.width-4, 20)).Render(m.detail))
	}
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("FraudGuard") + "  " + m.state.Kind.Label()
	if m.user != "" {
		title += mutedStyle.Render("  · " + m.user)
	}
	return title + "\n" + mutedStyle.Render(m.state.Kind.Description())
}

func (m Model) renderSummary() string {
	s := m.state.Ledger.Summary()
	cards := []string{
		cardStyle.Render(fmt.Sprintf("Total\n%d", s.Total)),
		cardStyle.BorderForeground(danger).Render(fmt.Sprintf("Fraud\n%d", s.Fraud)),
		cardStyle.BorderForeground(safe).Render(fmt.Sprintf("Legitimate\n%d", s.Legitimate)),
		cardStyle.Render("Amount\n₹" + explain.FormatAmount(s.TotalAmount)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m Model) renderForm() string {
	fields := fieldsFor(m.state.Kind)
	lines := make([]string, len(fields))
	for i, f := range fields {
		marker := "  "
		if i == m.focus%len(fields) {
			marker = titleStyle.Render("› ")
		}
		lines[i] = marker + labelStyle.Render(f.label) + m.inputs[f.name].View()
	}
	return strings.Join(lines, "\n")
}
