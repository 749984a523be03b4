package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	next     key.Binding
	prev     key.Binding
	enter    key.Binding
	back     key.Binding
	search   key.Binding
	play     key.Binding
	rewind   key.Binding
	forward  key.Binding
	volUp    key.Binding
	volDown  key.Binding
	like     key.Binding
	add      key.Binding
	nextPage key.Binding
	prevPage key.Binding
	account  key.Binding
	refresh  key.Binding
	dismiss  key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next section")),
		prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev section")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play/open")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		play:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		rewind:   key.NewBinding(key.WithKeys("left", ","), key.WithHelp("←", "-5s")),
		forward:  key.NewBinding(key.WithKeys("right", "."), key.WithHelp("→", "+5s")),
		volUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "vol up")),
		volDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "vol down")),
		like:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "like")),
		add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "playlists")),
		nextPage: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next page")),
		prevPage: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev page")),
		account:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "sign in/out")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		dismiss:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss error")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.play, k.like, k.add, k.search, k.next, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.next, k.prev, k.enter, k.back},
		{k.play, k.rewind, k.forward, k.volUp, k.volDown},
		{k.like, k.add, k.search, k.nextPage, k.prevPage},
		{k.account, k.refresh, k.dismiss, k.quit},
	}
}
