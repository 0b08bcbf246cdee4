package client

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(10)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Italic(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

var banner = figure.NewFigure("chatmesh", "", true).String()

// View renders the current screen.
func (a *App) View() string {
	if a.mode == ModeLogin {
		return a.loginView()
	}
	return a.chatView()
}

func (a *App) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(banner))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("username"))
	b.WriteString(a.loginFields[0].View())
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("password"))
	b.WriteString(a.loginFields[1].View())
	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render(a.status))
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("tab: switch field · enter: login · ctrl+c: quit"))
	return b.String()
}

func (a *App) chatView() string {
	var b strings.Builder
	b.WriteString(a.viewport.View())
	b.WriteString("\n")
	b.WriteString(a.input.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(a.status))
	return b.String()
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	const chrome = 2
	vpHeight := height - chrome
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !a.ready {
		a.viewport = viewport.New(width, vpHeight)
		a.ready = true
	} else {
		a.viewport.Width = width
		a.viewport.Height = vpHeight
	}
	a.input.Width = width - 3
	a.refreshViewport()
}

func (a *App) refreshViewport() {
	if !a.ready {
		return
	}
	a.viewport.SetContent(strings.Join(a.history, "\n"))
	a.viewport.GotoBottom()
}
