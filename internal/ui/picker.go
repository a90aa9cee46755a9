package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/knock/internal/errors"
)

// TargetInfo contains information about a probe target for display in the
// picker.
type TargetInfo struct {
	Name string   // Target name from config or SSH alias
	Addr string   // host:port shown beneath the name
	User string   // Username, if known
	Tags []string // Tags for filtering
}

// targetItem implements list.Item for the Bubbles list component.
type targetItem struct {
	target TargetInfo
}

func (i targetItem) Title() string {
	return i.target.Name
}

func (i targetItem) Description() string {
	var parts []string

	if i.target.User != "" {
		parts = append(parts, fmt.Sprintf("%s@%s", i.target.User, i.target.Addr))
	} else if i.target.Addr != "" {
		parts = append(parts, i.target.Addr)
	}

	if len(i.target.Tags) > 0 {
		parts = append(parts, "["+strings.Join(i.target.Tags, ", ")+"]")
	}

	return strings.Join(parts, " | ")
}

func (i targetItem) FilterValue() string {
	// Allow searching by name, address, and tags
	values := []string{i.target.Name, i.target.Addr}
	values = append(values, i.target.Tags...)
	return strings.Join(values, " ")
}

// TargetPickerModel is a Bubble Tea model for selecting a probe target.
type TargetPickerModel struct {
	list     list.Model
	targets  []TargetInfo
	selected *TargetInfo
	quitting bool
	width    int
	height   int
}

type targetPickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

var targetPickerKeys = targetPickerKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// NewTargetPickerModel creates a new target picker model.
func NewTargetPickerModel(targets []TargetInfo) TargetPickerModel {
	items := make([]list.Item, len(targets))
	for i, t := range targets {
		items[i] = targetItem{target: t}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color(string(ColorPrimary))).
		BorderForeground(lipgloss.Color(string(ColorSecondary)))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color(string(ColorMuted)))

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select a target"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color(string(ColorPrimary))).
		Bold(true).
		Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(string(ColorMuted)))

	return TargetPickerModel{
		list:    l,
		targets: targets,
		width:   80,
		height:  15,
	}
}

// Init implements tea.Model.
func (m TargetPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TargetPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, targetPickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(targetItem); ok {
				m.selected = &item.target
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, targetPickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m TargetPickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// Selected returns the selected target, or nil if cancelled.
func (m TargetPickerModel) Selected() *TargetInfo {
	return m.selected
}

// PickTarget displays an interactive target picker and returns the selected
// target. Returns nil if the user cancels (ESC/q/Ctrl+C).
func PickTarget(targets []TargetInfo) (*TargetInfo, error) {
	return PickTargetWithOutput(targets, os.Stdout, os.Stdin)
}

// PickTargetWithOutput displays the target picker using custom I/O.
func PickTargetWithOutput(targets []TargetInfo, output io.Writer, input io.Reader) (*TargetInfo, error) {
	if len(targets) == 0 {
		return nil, errors.New(errors.ErrConfig, "No targets to pick from", "Add targets to your .knock.yaml or pass one as an argument.")
	}

	if len(targets) == 1 {
		return &targets[0], nil
	}

	model := NewTargetPickerModel(targets)

	p := tea.NewProgram(
		model,
		tea.WithOutput(output),
		tea.WithInput(input),
	)

	finalModel, err := p.Run()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig, "Target picker failed", "Try running again or pass the target directly.")
	}

	if m, ok := finalModel.(TargetPickerModel); ok {
		return m.Selected(), nil
	}

	return nil, nil
}

// IsTerminal returns true if the file descriptor is a terminal.
func IsTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
