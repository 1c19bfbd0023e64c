package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/theme"
)

// SavedMsg carries the edited configuration.
type SavedMsg struct {
	Config model.AppConfig
}

// DoneMsg signals the settings view should close without saving.
type DoneMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	baseURL        string
	timeoutSec     string
	streamPath     string
	reconnectDelay string
	logLevel       string
	metricsAddr    string
}

// Model edits the connection and logging settings.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	base   model.AppConfig
	width  int
	height int
}

// New creates a settings view.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// Start opens the form pre-filled from cfg.
func (m *Model) Start(cfg model.AppConfig) tea.Cmd {
	m.base = cfg
	m.fb = &formBindings{
		baseURL:        cfg.Server.BaseURL,
		timeoutSec:     strconv.Itoa(cfg.Server.TimeoutSec),
		streamPath:     cfg.Stream.Path,
		reconnectDelay: strconv.Itoa(cfg.Stream.ReconnectDelayMs),
		logLevel:       cfg.Log.Level,
		metricsAddr:    cfg.Debug.MetricsAddr,
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		cfg := m.apply()
		return m, func() tea.Msg { return SavedMsg{Config: cfg} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return DoneMsg{} }
	}
	return m, cmd
}

// apply copies the validated form values over the base configuration.
func (m Model) apply() model.AppConfig {
	cfg := m.base
	cfg.Server.BaseURL = strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	cfg.Server.TimeoutSec, _ = strconv.Atoi(strings.TrimSpace(m.fb.timeoutSec))
	cfg.Stream.Path = strings.TrimSpace(m.fb.streamPath)
	cfg.Stream.ReconnectDelayMs, _ = strconv.Atoi(strings.TrimSpace(m.fb.reconnectDelay))
	cfg.Log.Level = m.fb.logLevel
	cfg.Debug.MetricsAddr = strings.TrimSpace(m.fb.metricsAddr)
	return cfg
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := theme.TitleStyle.Render("Settings")
	note := lipgloss.NewStyle().Foreground(theme.ColorGray).Render("Changes apply on the next start.")
	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, note, m.form.View()))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fb := m.fb
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Placeholder("http://localhost:8080").
				Value(&fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Request timeout (seconds)").
				Value(&fb.timeoutSec).
				Validate(validatePositive("timeout")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Notification stream path").
				Value(&fb.streamPath).
				Validate(validatePath),
			huh.NewInput().
				Title("Reconnect delay (ms)").
				Value(&fb.reconnectDelay).
				Validate(validatePositive("reconnect delay")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&fb.logLevel),
			huh.NewInput().
				Title("Metrics address").
				Description("Empty disables the /metrics endpoint.").
				Placeholder("127.0.0.1:9464").
				Value(&fb.metricsAddr),
		),
	).WithWidth(min(m.width-4, 70)).WithShowHelp(true)
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validatePath(s string) error {
	if !strings.HasPrefix(strings.TrimSpace(s), "/") {
		return fmt.Errorf("path must start with /")
	}
	return nil
}

func validatePositive(field string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s must be a number", field)
		}
		if n <= 0 {
			return fmt.Errorf("%s must be positive", field)
		}
		return nil
	}
}
