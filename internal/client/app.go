// Package client implements the terminal chat client: a login form followed
// by a scrolling chat view over the newline-delimited wire protocol.
package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"chatmesh/internal/config"
	"chatmesh/internal/protocol"
)

// Mode represents the current screen.
type Mode int

const (
	// ModeLogin shows the credential form.
	ModeLogin Mode = iota
	// ModeChat shows the message viewport and input line.
	ModeChat
)

const quitCommand = "/quit"

type serverLineMsg string
type disconnectedMsg struct{}
type connectResultMsg struct{ err error }

// App implements the bubbletea tea.Model interface for the terminal client.
type App struct {
	cfg      config.ClientConfig
	session  *Session
	mode     Mode
	username string
	status   string

	loginFocus  int
	loginFields [2]textinput.Model

	input    textinput.Model
	viewport viewport.Model
	history  []string
	ready    bool
	width    int
	height   int
}

// NewApp returns a Bubble Tea model pre-populated with defaults.
func NewApp(cfg config.ClientConfig) *App {
	userField := textinput.New()
	userField.Placeholder = "username"
	userField.CharLimit = 32
	userField.Focus()

	passField := textinput.New()
	passField.Placeholder = "password"
	passField.EchoMode = textinput.EchoPassword
	passField.EchoCharacter = '•'
	passField.CharLimit = 64

	input := textinput.New()
	input.Placeholder = "message or /command"

	return &App{
		cfg:         cfg,
		session:     NewSession(cfg),
		mode:        ModeLogin,
		loginFields: [2]textinput.Model{userField, passField},
		input:       input,
		history:     make([]string, 0, 128),
	}
}

// Init is part of the tea.Model interface.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles user input and server events.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(m.Width, m.Height)
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case connectResultMsg:
		if m.err != nil {
			a.status = fmt.Sprintf("connection failed: %v", m.err)
			return a, nil
		}
		a.status = "authenticating..."
		return a, a.waitForLine()
	case serverLineMsg:
		return a.handleServerLine(string(m))
	case disconnectedMsg:
		a.status = "disconnected from server"
		a.appendHistory("*** disconnected ***")
		return a, nil
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		_ = a.session.Close()
		return a, tea.Quit
	case tea.KeyTab:
		if a.mode == ModeLogin {
			a.focusLoginField((a.loginFocus + 1) % len(a.loginFields))
			return a, nil
		}
	case tea.KeyEnter:
		if a.mode == ModeLogin {
			return a.submitLogin()
		}
		return a.submitChatLine()
	}

	var cmd tea.Cmd
	if a.mode == ModeLogin {
		a.loginFields[a.loginFocus], cmd = a.loginFields[a.loginFocus].Update(msg)
		return a, cmd
	}
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) submitLogin() (tea.Model, tea.Cmd) {
	username := strings.TrimSpace(a.loginFields[0].Value())
	password := a.loginFields[1].Value()
	if username == "" || password == "" {
		a.status = "username and password required"
		return a, nil
	}
	a.username = username
	a.status = "connecting..."
	return a, func() tea.Msg {
		if err := a.session.Connect(context.Background()); err != nil {
			return connectResultMsg{err: err}
		}
		if err := a.session.SendLine(fmt.Sprintf("%s %s %s", protocol.LoginPrefix, username, password)); err != nil {
			return connectResultMsg{err: err}
		}
		return connectResultMsg{}
	}
}

func (a *App) submitChatLine() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(a.input.Value())
	a.input.SetValue("")
	if line == "" {
		return a, nil
	}
	if line == quitCommand {
		_ = a.session.Close()
		return a, tea.Quit
	}
	if err := a.session.SendLine(line); err != nil {
		a.status = fmt.Sprintf("send failed: %v", err)
		return a, nil
	}
	return a, nil
}

func (a *App) handleServerLine(line string) (tea.Model, tea.Cmd) {
	if a.mode == ModeLogin {
		// First server line answers the handshake.
		if strings.Contains(line, "successful") {
			a.mode = ModeChat
			a.status = fmt.Sprintf("logged in as %s", a.username)
			a.input.Focus()
			a.appendHistory(line)
			return a, a.waitForLine()
		}
		a.status = line
		_ = a.session.Close()
		a.session = NewSession(a.cfg)
		return a, nil
	}

	a.appendHistory(line)
	return a, a.waitForLine()
}

func (a *App) waitForLine() tea.Cmd {
	lines := a.session.Lines()
	return func() tea.Msg {
		line, ok := <-lines
		if !ok {
			return disconnectedMsg{}
		}
		return serverLineMsg(line)
	}
}

func (a *App) appendHistory(line string) {
	a.history = append(a.history, line)
	a.refreshViewport()
}

func (a *App) focusLoginField(index int) {
	a.loginFields[a.loginFocus].Blur()
	a.loginFocus = index
	a.loginFields[a.loginFocus].Focus()
}
