// Package tui is the interactive terminal client: fill in an idea, start a
// sequential or swarm validation, and watch the session until it lands.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/venturahq/ventura/internal/apiclient"
	"github.com/venturahq/ventura/internal/clientconfig"
)

type screen int

const (
	screenForm screen = iota
	screenSessions
	screenWatch
)

type sessionsLoadedMsg struct {
	sessions []sessionRow
	err      error
}

type sessionStartedMsg struct {
	sessionID string
	err       error
}

type resultMsg struct {
	result map[string]any
	err    error
}

type cancelRequestedMsg struct {
	err error
}

type tickMsg time.Time

type sessionRow struct {
	ID        string
	Mode      string
	State     string
	StartedAt string
}

type model struct {
	cfg        clientconfig.Config
	client     *apiclient.Client
	screen     screen
	width      int
	statusLine string

	descInput     textarea.Model
	industryInput textinput.Model
	marketInput   textinput.Model
	modelInput    textinput.Model
	regionInput   textinput.Model
	formFocus     int
	swarmMode     bool

	sessions []sessionRow
	cursor   int

	watchID    string
	lastResult map[string]any
	watchErr   error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func Run(cfg clientconfig.Config, client *apiclient.Client) error {
	descInput := textarea.New()
	descInput.Placeholder = "Describe the business idea..."
	descInput.Prompt = ""
	descInput.SetHeight(4)
	descInput.SetWidth(96)
	descInput.Focus()

	industryInput := textinput.New()
	industryInput.Prompt = "Industry: "
	industryInput.Placeholder = "e.g. fintech"

	marketInput := textinput.New()
	marketInput.Prompt = "Target market: "
	marketInput.Placeholder = "e.g. freelancers in the EU"

	modelInput := textinput.New()
	modelInput.Prompt = "Business model: "
	modelInput.Placeholder = "e.g. subscription SaaS"

	regionInput := textinput.New()
	regionInput.Prompt = "Region: "
	regionInput.Placeholder = "optional"

	m := model{
		cfg:           cfg,
		client:        client,
		screen:        screenForm,
		descInput:     descInput,
		industryInput: industryInput,
		marketInput:   marketInput,
		modelInput:    modelInput,
		regionInput:   regionInput,
		statusLine:    "Tab through fields. [ ] toggles mode. Enter starts a validation.",
	}

	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func (m model) Init() tea.Cmd {
	return loadSessionsCmd(m.client, m.cfg.RequestTimeout)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.descInput.SetWidth(max(40, typed.Width-8))
		return m, nil
	case tea.KeyMsg:
		if typed.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case sessionsLoadedMsg:
		if typed.err != nil {
			m.statusLine = "session list error: " + typed.err.Error()
			return m, nil
		}
		m.sessions = typed.sessions
		if m.cursor >= len(m.sessions) {
			m.cursor = max(0, len(m.sessions)-1)
		}
		return m, nil
	case sessionStartedMsg:
		if typed.err != nil {
			m.statusLine = "start failed: " + typed.err.Error()
			return m, nil
		}
		m.watchID = typed.sessionID
		m.lastResult = nil
		m.watchErr = nil
		m.screen = screenWatch
		m.statusLine = "watching " + typed.sessionID
		return m, tea.Batch(pollResultCmd(m.client, m.cfg.RequestTimeout, typed.sessionID), tickCmd())
	case resultMsg:
		m.watchErr = typed.err
		if typed.err == nil {
			m.lastResult = typed.result
		}
		return m, nil
	case cancelRequestedMsg:
		if typed.err != nil {
			m.statusLine = "cancel failed: " + typed.err.Error()
		} else {
			m.statusLine = "cancellation requested"
		}
		return m, nil
	case tickMsg:
		if m.screen == screenWatch && !m.watchDone() {
			return m, tea.Batch(pollResultCmd(m.client, m.cfg.RequestTimeout, m.watchID), tickCmd())
		}
		return m, nil
	}

	switch m.screen {
	case screenForm:
		return m.updateForm(msg)
	case screenSessions:
		return m.updateSessions(msg)
	case screenWatch:
		return m.updateWatch(msg)
	default:
		return m, nil
	}
}

func (m model) View() string {
	var body string
	switch m.screen {
	case screenForm:
		body = m.viewForm()
	case screenSessions:
		body = m.viewSessions()
	case screenWatch:
		body = m.viewWatch()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Ventura"),
		mutedStyle.Render("Hub: "+m.cfg.GRPCAddr),
		"",
		body,
		"",
		mutedStyle.Render(m.statusLine),
	)
}

func (m model) updateForm(msg tea.Msg) (model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		switch typed.String() {
		case "tab":
			m.formFocus = (m.formFocus + 1) % 5
			m.applyFormFocus()
			return m, nil
		case "shift+tab":
			m.formFocus = (m.formFocus + 4) % 5
			m.applyFormFocus()
			return m, nil
		case "[", "]":
			m.swarmMode = !m.swarmMode
			return m, nil
		case "ctrl+l":
			m.screen = screenSessions
			m.statusLine = "j/k move, enter watches, r refreshes, esc goes back"
			return m, loadSessionsCmd(m.client, m.cfg.RequestTimeout)
		case "enter":
			if m.formFocus != 0 {
				input := m.startInput()
				if strings.TrimSpace(input.Description) == "" || input.Industry == "" ||
					input.TargetMarket == "" || input.BusinessMod == "" {
					m.statusLine = "description, industry, target market and business model are required"
					return m, nil
				}
				m.statusLine = "starting..."
				return m, startSessionCmd(m.client, m.cfg.RequestTimeout, input, m.swarmMode)
			}
		}
	}

	var cmd tea.Cmd
	switch m.formFocus {
	case 0:
		m.descInput, cmd = m.descInput.Update(msg)
	case 1:
		m.industryInput, cmd = m.industryInput.Update(msg)
	case 2:
		m.marketInput, cmd = m.marketInput.Update(msg)
	case 3:
		m.modelInput, cmd = m.modelInput.Update(msg)
	case 4:
		m.regionInput, cmd = m.regionInput.Update(msg)
	}
	return m, cmd
}

func (m model) updateSessions(msg tea.Msg) (model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		switch typed.String() {
		case "esc":
			m.screen = screenForm
			return m, nil
		case "j", "down":
			if m.cursor < len(m.sessions)-1 {
				m.cursor++
			}
			return m, nil
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "r":
			return m, loadSessionsCmd(m.client, m.cfg.RequestTimeout)
		case "enter":
			if len(m.sessions) > 0 {
				m.watchID = m.sessions[m.cursor].ID
				m.lastResult = nil
				m.watchErr = nil
				m.screen = screenWatch
				m.statusLine = "watching " + m.watchID
				return m, tea.Batch(pollResultCmd(m.client, m.cfg.RequestTimeout, m.watchID), tickCmd())
			}
			return m, nil
		}
	}
	return m, nil
}

func (m model) updateWatch(msg tea.Msg) (model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		switch typed.String() {
		case "esc":
			m.screen = screenSessions
			return m, loadSessionsCmd(m.client, m.cfg.RequestTimeout)
		case "q":
			if !m.watchDone() {
				return m, cancelSessionCmd(m.client, m.cfg.RequestTimeout, m.watchID)
			}
			return m, nil
		}
	}
	return m, nil
}

func (m model) viewForm() string {
	mode := "sequential (7 phases)"
	if m.swarmMode {
		mode = "swarm (8 stress scenarios)"
	}
	lines := []string{
		sectionStyle.Render("New Validation"),
		"Mode: " + mode + "  [ / ] to toggle",
		focusPrefix(m.formFocus == 0) + "Idea:",
		m.descInput.View(),
		focusPrefix(m.formFocus == 1) + m.industryInput.View(),
		focusPrefix(m.formFocus == 2) + m.marketInput.View(),
		focusPrefix(m.formFocus == 3) + m.modelInput.View(),
		focusPrefix(m.formFocus == 4) + m.regionInput.View(),
		"",
		mutedStyle.Render("Enter: start | Ctrl+L: sessions | Ctrl+C: quit"),
	}
	return strings.Join(lines, "\n")
}

func (m model) viewSessions() string {
	lines := []string{
		sectionStyle.Render("Sessions"),
		fmt.Sprintf("Total: %d", len(m.sessions)),
		"",
	}
	start := max(0, m.cursor-10)
	end := min(len(m.sessions), start+20)
	for i := start; i < end; i++ {
		row := m.sessions[i]
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}
		lines = append(lines, fmt.Sprintf("%s %s  %-10s %-10s %s", cursor, row.ID, row.Mode, stateStyle(row.State).Render(row.State), row.StartedAt))
	}
	lines = append(lines, "", mutedStyle.Render("enter: watch | r: refresh | esc: back"))
	return strings.Join(lines, "\n")
}

func (m model) viewWatch() string {
	lines := []string{
		sectionStyle.Render("Session " + m.watchID),
	}
	if m.watchErr != nil {
		lines = append(lines, errStyle.Render("poll error: "+m.watchErr.Error()))
	}
	if m.lastResult == nil {
		lines = append(lines, "waiting for first poll...")
		return strings.Join(lines, "\n")
	}

	state, _ := m.lastResult["state"].(string)
	phasesDone := asInt(m.lastResult["phases_done"])
	scenariosDone := asInt(m.lastResult["scenarios_done"])
	lines = append(lines,
		"State: "+stateStyle(state).Render(state),
		fmt.Sprintf("Phases done: %d / 7", phasesDone),
		fmt.Sprintf("Scenarios done: %d / 8", scenariosDone),
	)

	if report, ok := m.lastResult["report"].(map[string]any); ok {
		status, _ := report["overall_status"].(string)
		lines = append(lines,
			"",
			sectionStyle.Render("Report"),
			"Status: "+stateStyle(status).Render(status),
			fmt.Sprintf("Composite score: %.2f", asFloat(report["composite_score"])),
		)
		lines = append(lines, renderPhases(report)...)
		lines = append(lines, renderScenarios(report)...)
	}

	lines = append(lines, "", mutedStyle.Render("q: cancel session | esc: back to sessions"))
	return strings.Join(lines, "\n")
}

func renderPhases(report map[string]any) []string {
	raw, ok := report["phases"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	lines := []string{"", sectionStyle.Render("Phases")}
	for _, item := range raw {
		phase, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := phase["phase_name"].(string)
		status, _ := phase["status"].(string)
		lines = append(lines, fmt.Sprintf("  %-22s %-9s confidence %.2f", name, status, asFloat(phase["confidence"])))
	}
	return lines
}

func renderScenarios(report map[string]any) []string {
	raw, ok := report["scenarios"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	lines := []string{"", sectionStyle.Render("Scenarios")}
	for _, item := range raw {
		scenario, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := scenario["scenario_type"].(string)
		status, _ := scenario["status"].(string)
		severity := "-"
		if value, present := scenario["severity_score"]; present && value != nil {
			severity = fmt.Sprintf("%.1f", asFloat(value))
		}
		lines = append(lines, fmt.Sprintf("  %-24s %-9s severity %s", name, status, severity))
	}
	return lines
}

func (m model) watchDone() bool {
	if m.lastResult == nil {
		return false
	}
	inProgress, ok := m.lastResult["in_progress"].(bool)
	return ok && !inProgress
}

func (m *model) applyFormFocus() {
	m.descInput.Blur()
	m.industryInput.Blur()
	m.marketInput.Blur()
	m.modelInput.Blur()
	m.regionInput.Blur()
	switch m.formFocus {
	case 0:
		m.descInput.Focus()
	case 1:
		m.industryInput.Focus()
	case 2:
		m.marketInput.Focus()
	case 3:
		m.modelInput.Focus()
	case 4:
		m.regionInput.Focus()
	}
}

func (m model) startInput() apiclient.StartInput {
	return apiclient.StartInput{
		Description:  strings.TrimSpace(m.descInput.Value()),
		Industry:     strings.TrimSpace(m.industryInput.Value()),
		TargetMarket: strings.TrimSpace(m.marketInput.Value()),
		BusinessMod:  strings.TrimSpace(m.modelInput.Value()),
		Region:       strings.TrimSpace(m.regionInput.Value()),
	}
}

func loadSessionsCmd(client *apiclient.Client, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		raw, err := client.ListSessions(ctx)
		if err != nil {
			return sessionsLoadedMsg{err: err}
		}
		rows := make([]sessionRow, 0, len(raw))
		for _, item := range raw {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			row := sessionRow{}
			row.ID, _ = entry["id"].(string)
			row.Mode, _ = entry["mode"].(string)
			row.State, _ = entry["state"].(string)
			row.StartedAt, _ = entry["started_at"].(string)
			rows = append(rows, row)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].StartedAt > rows[j].StartedAt })
		return sessionsLoadedMsg{sessions: rows}
	}
}

func startSessionCmd(client *apiclient.Client, timeout time.Duration, input apiclient.StartInput, swarm bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		call := client.StartValidation
		if swarm {
			call = client.StartSwarm
		}
		response, err := call(ctx, input)
		if err != nil {
			return sessionStartedMsg{err: err}
		}
		sessionID, _ := response["id"].(string)
		if strings.TrimSpace(sessionID) == "" {
			return sessionStartedMsg{err: fmt.Errorf("start response missing session id")}
		}
		return sessionStartedMsg{sessionID: sessionID}
	}
}

func pollResultCmd(client *apiclient.Client, timeout time.Duration, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := client.GetResult(ctx, sessionID)
		return resultMsg{result: result, err: err}
	}
}

func cancelSessionCmd(client *apiclient.Client, timeout time.Duration, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := client.CancelSession(ctx, sessionID)
		return cancelRequestedMsg{err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "complete", "validated":
		return okStyle
	case "running", "pending", "validated_with_warnings":
		return warnStyle
	case "aborted", "cancelled", "not_viable":
		return errStyle
	default:
		return mutedStyle
	}
}

func asInt(value any) int {
	f, ok := value.(float64)
	if !ok {
		return 0
	}
	return int(f)
}

func asFloat(value any) float64 {
	f, _ := value.(float64)
	return f
}

func focusPrefix(active bool) string {
	if active {
		return "> "
	}
	return "  "
}
