package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Record  key.Binding
	Next    key.Binding
	Camera  key.Binding
	Restart key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Record:  key.NewBinding(key.WithKeys("r", " "), key.WithHelp("r", "start/stop recording")),
		Next:    key.NewBinding(key.WithKeys("n", "enter"), key.WithHelp("n", "next question")),
		Camera:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "camera")),
		Restart: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "new session")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Record, k.Next, k.Camera, k.Restart, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
