package login

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/readonme/internal/theme"
)

// SubmitMsg is dispatched when the user completes the form.
type SubmitMsg struct {
	Email    string
	Password string
	Nickname string
	SignUp   bool
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	signUp   bool
	email    string
	password string
	nickname string
}

// Model is the sign-in / sign-up form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	notice string
	width  int
	height int
}

// New creates a login form model.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// Start resets the form. notice is shown above it, e.g. why the user was
// signed out.
func (m *Model) Start(notice string) tea.Cmd {
	email := m.fb.email
	m.fb = &formBindings{email: email}
	m.notice = notice
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
		fb := *m.fb
		return m, func() tea.Msg {
			return SubmitMsg{
				Email:    strings.TrimSpace(fb.email),
				Password: fb.password,
				Nickname: strings.TrimSpace(fb.nickname),
				SignUp:   fb.signUp,
			}
		}
	case huh.StateAborted:
		return m, m.Start("")
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	parts := []string{theme.TitleStyle.Render("Welcome to ReadOnMe")}
	if m.notice != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorYellow).Render(m.notice))
	}
	parts = append(parts, m.form.View())

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
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
			huh.NewSelect[bool]().
				Title("Account").
				Options(
					huh.NewOption("Sign in", false),
					huh.NewOption("Create an account", true),
				).
				Value(&fb.signUp),
			huh.NewInput().
				Title("Email").
				Value(&fb.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&fb.password).
				Validate(required("password")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Nickname").
				Value(&fb.nickname).
				Validate(required("nickname")),
		).WithHideFunc(func() bool { return !fb.signUp }),
	).WithWidth(min(m.width-4, 60)).WithShowHelp(true)
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return errors.New("enter a valid email address")
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}
