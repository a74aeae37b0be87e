// Package tui is the terminal front end of the fraud dashboard. It keeps an
// app.State and changes it only through app.Reduce.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/opensource-finance/fraudguard/internal/analysis"
	"github.com/opensource-finance/fraudguard/internal/app"
	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/ledger"
)

// Config wires the dashboard.
type Config struct {
	Analyzer *analysis.Analyzer

	// User is shown in the header.
	User string

	// ExportDir receives CSV exports. Empty means the working directory.
	ExportDir string

	// Renderer formats explanations. Nil prints them as plain text.
	Renderer *glamour.TermRenderer
}

type field struct {
	name        string
	label       string
	placeholder string
}

var transactionFields = []field{
	{app.FieldTransactionID, "Transaction ID", "auto"},
	{app.FieldAmount, "Amount (₹)", "2500"},
	{app.FieldMerchant, "Merchant", "Online Retail"},
	{app.FieldLocation, "Location", "mumbai"},
	{app.FieldDate, "Date", "YYYY-MM-DD"},
	{app.FieldTime, "Time", "HH:MM"},
}

var behaviorFields = []field{
	{app.FieldUserID, "User ID", "user-42"},
	{app.FieldSessionID, "Session ID", "optional"},
	{app.FieldLocation, "Location", "mumbai"},
	{app.FieldDate, "Date", "YYYY-MM-DD"},
	{app.FieldTime, "Time", "HH:MM"},
}

func fieldsFor(kind domain.ModelKind) []field {
	if kind == domain.KindBehavior {
		return behaviorFields
	}
	return transactionFields
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	analyzer *analysis.Analyzer
	renderer *glamour.TermRenderer
	user     string
	exportTo string

	state    app.State
	inputs   map[string]textinput.Model
	focus    int
	activity <-chan tea.Msg

	progress progress.Model
	table    table.Model
	help     help.Model
	keys     KeyMap

	detail string
	notice string
	width  int
	height int
}

// New creates the dashboard model.
func New(ctx context.Context, cfg Config) Model {
	ctx, cancel := context.WithCancel(ctx)

	inputs := make(map[string]textinput.Model)
	for _, fields := range [][]field{transactionFields, behaviorFields} {
		for _, f := range fields {
			if _, ok := inputs[f.name]; ok {
				continue
			}
			ti := textinput.New()
			ti.Placeholder = f.placeholder
			ti.CharLimit = 64
			ti.Width = 24
			inputs[f.name] = ti
		}
	}

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	m := Model{
		ctx:      ctx,
		cancel:   cancel,
		analyzer: cfg.Analyzer,
		renderer: cfg.Renderer,
		user:     cfg.User,
		exportTo: cfg.ExportDir,
		state:    app.NewState(),
		inputs:   inputs,
		progress: prog,
		table:    newTable(),
		help:     help.New(),
		keys:     DefaultKeyMap(),
		width:    100,
		height:   40,
	}
	m.focusInput()
	return m
}

// State returns the current dashboard state.
func (m Model) State() app.State {
	return m.state
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(msg.Width-8, 60)
		m.table.SetWidth(msg.Width - 4)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case progressMsg:
		m.dispatch(app.AnalysisProgressed{Percent: msg.step.Percent, Message: msg.step.Message})
		return m, tea.Batch(m.progress.SetPercent(float64(m.state.Progress)/100), m.waitForActivity())

	case finishedMsg:
		m.activity = nil
		if msg.err != nil {
			m.dispatch(app.AnalysisFailed{Err: msg.err})
		} else {
			m.dispatch(app.AnalysisCompleted{Record: msg.record})
			m.notice = fmt.Sprintf("%s recorded: %s", msg.record.ID, msg.record.FraudStatus)
		}
		m.syncInputs()
		m.refreshTable()
		m.table.GotoBottom()
		m.refreshDetail()
		return m, m.progress.SetPercent(0)

	case exportedMsg:
		if msg.err != nil {
			m.notice = "export failed: " + msg.err.Error()
		} else {
			m.notice = fmt.Sprintf("exported %d records to %s", msg.count, msg.path)
		}
		return m, nil

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Next):
		m.moveFocus(1)
		return m, nil

	case key.Matches(msg, m.keys.Prev):
		m.moveFocus(-1)
		return m, nil

	case key.Matches(msg, m.keys.ToggleKind):
		next := domain.KindBehavior
		if m.state.Kind == domain.KindBehavior {
			next = domain.KindTransaction
		}
		m.dispatch(app.ModelSelected{Kind: next})
		m.focus = 0
		m.focusInput()
		return m, nil

	case key.Matches(msg, m.keys.CycleStatus):
		m.dispatch(app.FiltersChanged{
			Status:   cycle(domain.StatusFilters, m.state.StatusFilter),
			Location: m.state.LocationFilter,
		})
		m.refreshTable()
		m.refreshDetail()
		return m, nil

	case key.Matches(msg, m.keys.CycleLocation):
		m.dispatch(app.FiltersChanged{
			Status:   m.state.StatusFilter,
			Location: cycle(domain.LocationFilters, m.state.LocationFilter),
		})
		m.refreshTable()
		m.refreshDetail()
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m, m.export()

	case key.Matches(msg, m.keys.Reset):
		if m.state.Analyzing {
			return m, nil
		}
		m.dispatch(app.SessionReset{})
		m.focus = 0
		m.syncInputs()
		m.focusInput()
		m.refreshTable()
		m.refreshDetail()
		m.notice = "session cleared"
		return m, nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		m.refreshDetail()
		return m, cmd
	}

	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused input and records any edit.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	f := m.focusedField()
	ti := m.inputs[f.name]
	before := ti.Value()

	var cmd tea.Cmd
	ti, cmd = ti.Update(msg)
	m.inputs[f.name] = ti

	if v := ti.Value(); v != before {
		m.dispatch(app.FieldChanged{Field: f.name, Value: v})
	}
	return m, cmd
}

// submit starts an analysis of the form in the background. Progress and
// the result come back as messages on m.activity.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.state.CanSubmit() || m.analyzer == nil {
		return m, nil
	}

	m.dispatch(app.AnalysisStarted{})
	m.notice = ""

	in := m.state.Input()
	l := m.state.Ledger
	ch := make(chan tea.Msg, len(analysis.Steps(in.Kind))+1)
	m.activity = ch

	go func() {
		defer close(ch)
		record, err := m.analyzer.Analyze(m.ctx, l, in, func(step analysis.Step) {
			ch <- progressMsg{step: step}
		})
		ch <- finishedMsg{record: record, err: err}
	}()

	return m, m.waitForActivity()
}

func (m Model) waitForActivity() tea.Cmd {
	ch := m.activity
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) export() tea.Cmd {
	view, err := m.state.View()
	if err != nil {
		return func() tea.Msg { return exportedMsg{err: err} }
	}
	path := filepath.Join(m.exportTo, ledger.ExportFilename(m.state.Kind))

	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: err}
		}
		if err := ledger.ExportCSV(f, view.Records); err != nil {
			f.Close()
			return exportedMsg{err: err}
		}
		if err := f.Close(); err != nil {
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path, count: len(view.Records)}
	}
}

func (m *Model) dispatch(ev app.Event) {
	m.state = app.Reduce(m.state, ev)
}

func (m Model) focusedField() field {
	fields := fieldsFor(m.state.Kind)
	return fields[m.focus%len(fields)]
}

func (m *Model) moveFocus(delta int) {
	n := len(fieldsFor(m.state.Kind))
	m.focus = (m.focus + delta + n) % n
	m.focusInput()
}

func (m *Model) focusInput() {
	focused := m.focusedField().name
	for name, ti := range m.inputs {
		if name == focused {
			ti.Focus()
		} else {
			ti.Blur()
		}
		m.inputs[name] = ti
	}
}

// syncInputs copies the form back into the inputs after the reducer
// changed it.
func (m *Model) syncInputs() {
	for name, ti := range m.inputs {
		ti.SetValue(formValue(m.state.Form, name))
		m.inputs[name] = ti
	}
}

func formValue(f app.Form, name string) string {
	switch name {
	case app.FieldTransactionID:
		return f.TransactionID
	case app.FieldAmount:
		return f.Amount
	case app.FieldMerchant:
		return f.MerchantCategory
	case app.FieldLocation:
		return f.Location
	case app.FieldUserID:
		return f.UserID
	case app.FieldSessionID:
		return f.SessionID
	case app.FieldDate:
		return f.Date
	case app.FieldTime:
		return f.Time
	}
	return ""
}

func cycle(values []string, current string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}
