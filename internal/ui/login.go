package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// loginForm collects an email and password.
type loginForm struct {
	email    textinput.Model
	password textinput.Model
	focus    int
	busy     bool
	err      error
}

func newLoginForm() loginForm {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email:    "
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	f := loginForm{email: email, password: password}
	f.email.Focus()
	return f
}

func (f loginForm) values() (string, string) {
	return strings.TrimSpace(f.email.Value()), f.password.Value()
}

// toggleFocus moves between the two fields.
func (f *loginForm) toggleFocus() {
	f.focus = 1 - f.focus
	if f.focus == 0 {
		f.password.Blur()
		f.email.Focus()
	} else {
		f.email.Blur()
		f.password.Focus()
	}
}

func (f loginForm) update(msg tea.Msg) (loginForm, tea.Cmd) {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}

func (f loginForm) view() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Sign in"))
	b.WriteString("\n")
	b.WriteString(f.email.View() + "\n")
	b.WriteString(f.password.View() + "\n\n")
	switch {
	case f.busy:
		b.WriteString(styles.muted.Render("Signing in..."))
	case f.err != nil:
		b.WriteString(styles.err.Render(f.err.Error()))
	default:
		b.WriteString(styles.help.Render("tab switch field • enter submit • esc cancel"))
	}
	return b.String()
}
