package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/api"
	"github.com/nhle/readonme/internal/catalog"
	"github.com/nhle/readonme/internal/keys"
	"github.com/nhle/readonme/internal/library"
	"github.com/nhle/readonme/internal/logger"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/notify"
	"github.com/nhle/readonme/internal/review"
	"github.com/nhle/readonme/internal/session"
	appsync "github.com/nhle/readonme/internal/sync"
	"github.com/nhle/readonme/internal/theme"
	"github.com/nhle/readonme/internal/ui"
	catalogview "github.com/nhle/readonme/internal/ui/catalog"
	"github.com/nhle/readonme/internal/ui/command"
	configview "github.com/nhle/readonme/internal/ui/config"
	helpview "github.com/nhle/readonme/internal/ui/help"
	"github.com/nhle/readonme/internal/ui/inbox"
	libraryview "github.com/nhle/readonme/internal/ui/library"
	"github.com/nhle/readonme/internal/ui/login"
	reviewsview "github.com/nhle/readonme/internal/ui/reviews"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewInbox
	ViewLibrary
	ViewReviews
	ViewHelp
	ViewCommand
	ViewSettings
	ViewCatalog
)

// Connection is the live notification stream as the UI sees it.
type Connection interface {
	State() appsync.State
	SetAuthenticated(authenticated bool)
}

// Deps are the long-lived services the UI drives.
type Deps struct {
	Session *session.Manager
	Inbox   *notify.Store
	Reviews *review.Store
	Library *library.Service
	Catalog *catalog.Service
	Stream  Connection
	Alerts  *appsync.TeaAlerter
	Log     *zap.Logger

	// Config is the loaded configuration; the settings view writes
	// edits back to ConfigPath.
	Config     *model.AppConfig
	ConfigPath string

	// Timeout bounds each REST action started from the UI.
	Timeout time.Duration
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the services behind the views.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	session *session.Manager
	inbox   *notify.Store
	reviews *review.Store
	library *library.Service
	catalog *catalog.Service
	stream  Connection
	alerts  *appsync.TeaAlerter
	log     *zap.Logger
	timeout time.Duration

	config     *model.AppConfig
	configPath string

	inboxSignal   signal
	sessionSignal signal
	unsubscribe   []func()

	loginView   login.Model
	inboxView   inbox.Model
	libraryView libraryview.Model
	reviewsView reviewsview.Model
	catalogView catalogview.Model
	helpView    helpview.Model
	commandView command.Model
	configView  configview.Model

	// reviewsFrom is the view the reviews view returns to.
	reviewsFrom ViewState

	ready     bool
	unread    int
	connState appsync.State
	alert     *appsync.AlertMsg
	errText   string
}

// New creates the root model and subscribes it to the inbox and session.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	m := Model{
		keys:          k,
		session:       d.Session,
		inbox:         d.Inbox,
		reviews:       d.Reviews,
		library:       d.Library,
		catalog:       d.Catalog,
		stream:        d.Stream,
		alerts:        d.Alerts,
		log:           logger.OrNop(d.Log).Named("ui"),
		timeout:       timeout,
		inboxSignal:   newSignal(),
		sessionSignal: newSignal(),
		loginView:     login.New(80, 24),
		inboxView:     inbox.New(k, 80, 24),
		libraryView:   libraryview.New(k, 80, 24),
		reviewsView:   reviewsview.New(k, 80, 24),
		catalogView:   catalogview.New(k, 80, 24),
		reviewsFrom:   ViewLibrary,
		helpView:      helpview.New(k, 80, 24),
		commandView:   command.New(80, 24),
		configView:    configview.New(80, 24),
		config:        d.Config,
		configPath:    d.ConfigPath,
	}

	inboxSig, sessionSig := m.inboxSignal, m.sessionSignal
	m.unsubscribe = []func(){
		d.Inbox.Subscribe(func(notify.State) { inboxSig.notify() }),
		d.Session.Subscribe(func(bool) { sessionSig.notify() }),
	}

	if d.Session.Authenticated() {
		m.currentView = ViewInbox
		m.previousView = ViewInbox
	}
	return m
}

// Close detaches the model from the stores.
func (m Model) Close() {
	for _, fn := range m.unsubscribe {
		fn()
	}
}

// Init starts the background waits and the first view.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.waitForInbox(),
		m.waitForSession(),
		tickStatus(),
	}
	if m.alerts != nil {
		cmds = append(cmds, m.alerts.WaitForAlert())
	}

	if m.currentView == ViewLogin {
		cmds = append(cmds, m.loginView.Start(""))
	} else {
		cmds = append(cmds, m.enterSignedIn()...)
	}
	return tea.Batch(cmds...)
}

// enterSignedIn loads what the signed-in views need.
func (m *Model) enterSignedIn() []tea.Cmd {
	return []tea.Cmd{m.fetchInbox(), m.refreshLibrary()}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case sessionChangedMsg:
		return m, tea.Batch(m.onSessionChanged(msg.authenticated), m.waitForSession())

	case authResultMsg:
		if msg.err != nil {
			m.log.Info("authentication failed", zap.Error(msg.err))
			return m, m.loginView.Start(userMessage(msg.err))
		}
		return m, nil

	case inboxChangedMsg:
		m.unread = msg.state.UnreadCount
		cmd := m.inboxView.SetState(msg.state)
		return m, tea.Batch(cmd, m.waitForInbox())

	case appsync.AlertMsg:
		return m, tea.Batch(m.setAlert(msg), m.alerts.WaitForAlert())

	case alertExpiredMsg:
		if m.alert != nil && m.alert.ID == msg.id {
			m.alert = nil
			m.resize()
		}
		return m, nil

	case statusTickMsg:
		if m.stream != nil {
			m.connState = m.stream.State()
		}
		return m, tickStatus()

	case actionErrMsg:
		return m, m.reportErr(msg.what, msg.err)

	case login.SubmitMsg:
		m.errText = ""
		return m, m.submitAuth(msg)

	case inbox.MarkReadMsg:
		return m, m.markRead(msg.ID)

	case inbox.MarkAllReadMsg:
		return m, m.markAllRead()

	case libraryview.LoadMsg:
		return m, m.loadLibrary(msg)

	case libraryview.LoadedMsg:
		var cmd tea.Cmd
		m.libraryView, cmd = m.libraryView.Update(msg)
		if msg.Err != nil {
			return m, tea.Batch(cmd, m.reportErr("reading library cache", msg.Err))
		}
		return m, cmd

	case libraryChangedMsg:
		return m, m.libraryView.Load()

	case libraryview.SetStatusMsg:
		return m, m.setBookStatus(msg)

	case libraryview.OpenReviewsMsg:
		return m, m.openReviews(msg.Book)

	case catalogview.SearchMsg:
		return m, m.searchCatalog(msg)

	case catalogview.ResultsMsg:
		var cmd tea.Cmd
		m.catalogView, cmd = m.catalogView.Update(msg)
		if msg.Err != nil {
			return m, tea.Batch(cmd, m.reportErr("searching books", msg.Err))
		}
		return m, cmd

	case catalogview.OpenMsg:
		return m, m.openBook(msg.ISBN)

	case catalogview.DetailMsg:
		var cmd tea.Cmd
		m.catalogView, cmd = m.catalogView.Update(msg)
		if msg.Err != nil {
			return m, tea.Batch(cmd, m.reportErr("opening book", msg.Err))
		}
		return m, cmd

	case catalogview.OpenReviewsMsg:
		return m, m.openReviews(msg.Book)

	case catalogview.SetStatusMsg:
		return m, m.shelveBook(msg.Book, msg.Status)

	case bookShelvedMsg:
		m.catalogView.SetShelf(msg.bookID, msg.status)
		return m, m.libraryView.Load()

	case reviewsLoadedMsg:
		cmd := m.reviewsView.SetState(msg.state)
		if msg.err != nil {
			return m, tea.Batch(cmd, m.reportErr(msg.what, msg.err))
		}
		return m, cmd

	case reviewsview.ToggleLikeMsg:
		return m, m.toggleLike(msg.ID)

	case reviewsview.CreateReviewMsg:
		return m, m.createReview(msg)

	case reviewsview.UpdateReviewMsg:
		return m, m.updateReview(msg)

	case reviewsview.DeleteReviewMsg:
		return m, m.deleteReview(msg.ID)

	case reviewsview.BackMsg:
		m.currentView = m.reviewsFrom
		return m, nil

	case configview.SavedMsg:
		m.currentView = m.previousView
		return m, m.saveConfig(msg.Config)

	case configview.DoneMsg:
		m.currentView = m.previousView
		return m, nil

	case configSavedMsg:
		if msg.err != nil {
			return m, m.reportErr("saving settings", msg.err)
		}
		cfg := msg.config
		m.config = &cfg
		return m, m.showAlert("Settings", "Saved. Restart to apply.")

	case command.CommandMsg:
		if m.currentView == ViewCommand {
			m.currentView = m.previousView
		}
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if model, cmd, handled := m.handleGlobalKey(msg); handled {
			return model, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work across views. Views that own
// text input get every key except ctrl+c.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit, true
	}

	switch m.currentView {
	case ViewLogin, ViewSettings:
		return m, nil, false
	case ViewCommand:
		if msg.String() == "esc" {
			m.currentView = m.previousView
			return m, nil, true
		}
		return m, nil, false
	case ViewLibrary:
		if m.libraryView.Searching() {
			return m, nil, false
		}
	case ViewReviews:
		if m.reviewsView.Editing() {
			return m, nil, false
		}
	case ViewCatalog:
		if m.catalogView.Inputting() {
			return m, nil, false
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		switch m.currentView {
		case ViewInbox, ViewLibrary, ViewCatalog:
			return m, tea.Quit, true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Inbox):
		m.currentView = ViewInbox
		return m, nil, true

	case key.Matches(msg, m.keys.Library):
		m.currentView = ViewLibrary
		return m, m.libraryView.Load(), true

	case key.Matches(msg, m.keys.Catalog):
		return m, m.openCatalog(), true

	case key.Matches(msg, m.keys.MyReviews):
		return m, m.openMyReviews(), true

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh(), true

	case key.Matches(msg, m.keys.Logout):
		m.session.Logout()
		return m, nil, true

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
	}
	return m, nil, false
}

// onSessionChanged switches between the login form and the signed-in
// views. The stream itself follows the session on its own.
func (m *Model) onSessionChanged(authenticated bool) tea.Cmd {
	if authenticated {
		if m.currentView != ViewLogin {
			return nil
		}
		m.errText = ""
		m.currentView = ViewInbox
		return tea.Batch(m.enterSignedIn()...)
	}

	m.inbox.Reset()
	m.currentView = ViewLogin
	notice := ""
	if err := m.session.Err(); err != nil {
		notice = userMessage(err)
	}
	return m.loginView.Start(notice)
}

// setAlert shows a in the banner until its expiry tick.
func (m *Model) setAlert(a appsync.AlertMsg) tea.Cmd {
	m.alert = &a
	m.resize()
	return expireAlert(a.ID)
}

// showAlert puts a locally raised message in the banner.
func (m *Model) showAlert(title, message string) tea.Cmd {
	return m.setAlert(appsync.AlertMsg{
		ID:      uuid.NewString(),
		Title:   title,
		Message: message,
		At:      time.Now(),
	})
}

// reportErr shows err in the status bar. An unauthorized response ends
// the session.
func (m *Model) reportErr(what string, err error) tea.Cmd {
	if err == nil {
		return nil
	}
	m.log.Warn(what, zap.Error(err))
	if api.IsUnauthorized(err) && m.session.Authenticated() {
		m.session.Logout()
		return nil
	}
	if errors.Is(err, review.ErrToggleInFlight) {
		m.errText = userMessage(err)
		return nil
	}
	m.errText = fmt.Sprintf("%s: %s", what, userMessage(err))
	return nil
}

// refresh reloads the inbox and the library from the server.
func (m *Model) refresh() tea.Cmd {
	m.errText = ""
	cmds := []tea.Cmd{m.fetchInbox(), m.refreshLibrary()}
	switch m.currentView {
	case ViewReviews:
		if m.reviewsView.Mine() {
			cmds = append(cmds, m.fetchMyReviews())
		} else {
			cmds = append(cmds, m.fetchReviews(m.reviewsView.Book().ID))
		}
	case ViewCatalog:
		cmds = append(cmds, m.catalogView.Load())
	}
	return tea.Batch(cmds...)
}

// openCatalog shows the catalog view with its current list reloaded.
func (m *Model) openCatalog() tea.Cmd {
	m.currentView = ViewCatalog
	return m.catalogView.Load()
}

// openReviews shows the reviews of book and remembers where to return.
func (m *Model) openReviews(book model.Book) tea.Cmd {
	m.enterReviews()
	cmd := m.reviewsView.Open(book)
	return tea.Batch(cmd, m.fetchReviews(book.ID))
}

// openMyReviews shows the reviews the signed-in user wrote.
func (m *Model) openMyReviews() tea.Cmd {
	m.enterReviews()
	cmd := m.reviewsView.OpenMine()
	return tea.Batch(cmd, m.fetchMyReviews())
}

func (m *Model) enterReviews() {
	if m.currentView != ViewReviews {
		m.reviewsFrom = m.currentView
	}
	if u := m.session.User(); u != nil {
		m.reviewsView.SetUser(u.ID)
	}
	m.currentView = ViewReviews
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(msg command.CommandMsg) tea.Cmd {
	if m.currentView == ViewLogin {
		if msg.Name == command.Quit {
			return tea.Quit
		}
		return nil
	}

	switch msg.Name {
	case command.Refresh:
		return m.refresh()
	case command.Inbox:
		m.currentView = ViewInbox
		return nil
	case command.Library:
		m.currentView = ViewLibrary
		return m.libraryView.Load()
	case command.SearchBooks:
		m.currentView = ViewLibrary
		return m.libraryView.SetQuery(msg.Args)
	case command.Books:
		return m.openCatalog()
	case command.Find, command.Ask:
		if msg.Args == "" {
			return m.openCatalog()
		}
		m.currentView = ViewCatalog
		return m.catalogView.Find(msg.Args, msg.Name == command.Ask)
	case command.MyReviews:
		return m.openMyReviews()
	case command.ReadAll:
		return m.markAllRead()
	case command.Reconnect:
		if m.stream != nil && m.session.Authenticated() {
			m.stream.SetAuthenticated(false)
			m.stream.SetAuthenticated(true)
		}
		return nil
	case command.Logout:
		m.session.Logout()
		return nil
	case command.Help:
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil
	case command.Settings:
		if m.config == nil {
			return nil
		}
		m.previousView = m.currentView
		m.currentView = ViewSettings
		return m.configView.Start(*m.config)
	case command.Quit:
		return tea.Quit
	default:
		m.errText = fmt.Sprintf("unknown command %q", msg.Name)
		return nil
	}
}

func (m *Model) resize() {
	if !m.ready {
		return
	}
	m.layout = m.layout.WithBanner(m.alert != nil)
	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.loginView.SetSize(w, h)
	m.inboxView.SetSize(w, h)
	m.libraryView.SetSize(w, h)
	m.reviewsView.SetSize(w, h)
	m.catalogView.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
	m.configView.SetSize(w, h)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewInbox:
		m.inboxView, cmd = m.inboxView.Update(msg)
	case ViewLibrary:
		m.libraryView, cmd = m.libraryView.Update(msg)
	case ViewReviews:
		m.reviewsView, cmd = m.reviewsView.Update(msg)
	case ViewCatalog:
		m.catalogView, cmd = m.catalogView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.configView, cmd = m.configView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.connectionStatus())
	var banner string
	if m.alert != nil {
		banner = m.layout.RenderBanner(m.alert.Title, m.alert.Message)
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.errText)

	return m.layout.RenderWithFrame(header, banner, m.renderContent(), statusBar)
}

func (m Model) headerTitle() string {
	title := "ReadOnMe"
	if u := m.session.User(); u != nil && m.currentView != ViewLogin {
		title = fmt.Sprintf("ReadOnMe · %s", u.Nickname)
	}
	if m.unread > 0 {
		title = fmt.Sprintf("%s [%d unread]", title, m.unread)
	}
	return title
}

func (m Model) connectionStatus() string {
	if m.currentView == ViewLogin {
		return ""
	}
	s := m.connState.String()
	return theme.ConnectionStyle(s).Render("● " + s)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewInbox:
		return m.inboxView.View()
	case ViewLibrary:
		return m.libraryView.View()
	case ViewReviews:
		return m.reviewsView.View()
	case ViewCatalog:
		return m.catalogView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSettings:
		return m.configView.View()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter submit | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewSettings:
		return "enter next | esc cancel"
	case ViewLibrary:
		return "tab shelf | s move | / search | enter reviews | 3 browse | q quit"
	case ViewReviews:
		if m.reviewsView.Editing() {
			return "enter next | esc cancel"
		}
		if m.reviewsView.Mine() {
			return "l like | e edit | d delete | esc back"
		}
		return "l like | n review | e edit | d delete | esc back"
	case ViewCatalog:
		switch {
		case m.catalogView.Inputting():
			return "enter search | esc cancel"
		case m.catalogView.InDetail():
			return "s move to shelf | enter reviews | esc back"
		}
		return "/ search | a ask | p popular | [ ] page | enter open | q quit"
	default:
		return "m read | M read all | 2 library | r refresh | : command | ? help | q quit"
	}
}
