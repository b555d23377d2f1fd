package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// keyMap defines key bindings for the TUI
type keyMap struct {
	Up      key
	Down    key
	Output  key
	Kill    key
	Refresh key
	Back    key
	Quit    key
}

// key represents a key binding with help text
type key struct {
	tea.Key
	help string
}

// shortHelp returns key bindings for the list footer
func (k keyMap) shortHelp() []key {
	return []key{k.Output, k.Kill, k.Refresh, k.Quit}
}

// outputHelp returns key bindings for the output view footer
func (k keyMap) outputHelp() []key {
	return []key{k.Kill, k.Back}
}

// fullHelp returns all key bindings
func (k keyMap) fullHelp() []key {
	return []key{k.Up, k.Down, k.Output, k.Kill, k.Refresh, k.Back, k.Quit}
}

// String returns the full help text
func (k keyMap) String() string {
	return joinHelp(k.fullHelp(), " ")
}

func joinHelp(keys []key, sep string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, "["+k.help+"]")
	}
	return strings.Join(parts, sep)
}

// defaultKeyMap creates the default key bindings
func defaultKeyMap() keyMap {
	return keyMap{
		Up: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'k'}},
			help: "↑/k up",
		},
		Down: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'j'}},
			help: "↓/j down",
		},
		Output: key{
			Key:  tea.Key{Type: tea.KeyEnter},
			help: "enter output",
		},
		Kill: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'x'}},
			help: "x kill",
		},
		Refresh: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'r'}},
			help: "r refresh",
		},
		Back: key{
			Key:  tea.Key{Type: tea.KeyEsc},
			help: "esc back",
		},
		Quit: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'q'}},
			help: "q quit",
		},
	}
}
