package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Pick    key.Binding
	Clear   key.Binding
	Next    key.Binding
	Prev    key.Binding
	Cursor  key.Binding
	CursorU key.Binding
	Save    key.Binding
	Copy    key.Binding
	Retry   key.Binding
	Sort    key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up"), key.WithHelp("↑↓←→", "pan")),
		Down:    key.NewBinding(key.WithKeys("down")),
		Left:    key.NewBinding(key.WithKeys("left")),
		Right:   key.NewBinding(key.WithKeys("right")),
		ZoomIn:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
		ZoomOut: key.NewBinding(key.WithKeys("-")),
		Pick:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "pick cell")),
		Clear:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Next:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n/p", "page")),
		Prev:    key.NewBinding(key.WithKeys("p")),
		Cursor:  key.NewBinding(key.WithKeys("j"), key.WithHelp("j/k", "scene")),
		CursorU: key.NewBinding(key.WithKeys("k")),
		Save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Copy:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy gdal command")),
		Retry:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Sort:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.ZoomIn, k.Pick, k.Clear, k.Next, k.Cursor, k.Save, k.Copy, k.Retry, k.Sort, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
