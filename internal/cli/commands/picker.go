package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/datquest/docquery/internal/page"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	pickerWidth  = 60
	pickerHeight = 14
)

// pickerItem is one dropdown option in the picker list.
type pickerItem struct {
	option page.Option
}

func (i pickerItem) Title() string { return i.option.Label }

func (i pickerItem) Description() string {
	if i.option.RecordID == "" {
		return ""
	}
	return "record " + i.option.RecordID
}

func (i pickerItem) FilterValue() string { return i.option.Label }

// key returns what select accepts for the option: the record id of a
// model, else the value.
func (i pickerItem) key() string {
	if i.option.RecordID != "" {
		return i.option.RecordID
	}
	return i.option.Value
}

var pickerKeys = struct {
	choose key.Binding
	cancel key.Binding
}{
	choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

// pickerModel lets the user choose one option of a dropdown.
type pickerModel struct {
	list   list.Model
	chosen string
	picked bool
}

func newPickerModel(title string, dd page.Dropdown) pickerModel {
	choices := dd.Choices()
	items := make([]list.Item, len(choices))
	selected := 0
	for i, o := range choices {
		items[i] = pickerItem{option: o}
		if o.Selected {
			selected = i
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), pickerWidth, pickerHeight)
	l.Title = title
	l.SetShowStatusBar(false)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{pickerKeys.choose, pickerKeys.cancel}
	}
	l.Select(selected)
	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		// While filtering, enter and esc belong to the filter input.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, pickerKeys.choose):
			if item, ok := m.list.SelectedItem().(pickerItem); ok {
				m.chosen, m.picked = item.key(), true
			}
			return m, tea.Quit
		case key.Matches(msg, pickerKeys.cancel):
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string { return m.list.View() }

// pickOption runs the picker over dd on the command's terminal and
// returns the chosen key; ok is false when the user cancelled.
var pickOption = func(cmd *cobra.Command, title string, dd page.Dropdown) (string, bool, error) {
	p := tea.NewProgram(newPickerModel(title, dd),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.ErrOrStderr()),
	)
	final, err := p.Run()
	if err != nil {
		return "", false, fmt.Errorf("run picker: %w", err)
	}
	m := final.(pickerModel)
	return m.chosen, m.picked, nil
}

// isInteractive reports whether the command reads from a terminal.
var isInteractive = func(cmd *cobra.Command) bool {
	in, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(int(in.Fd()))
}

// chooseOption asks the user for one of dd's choices. what names the
// missing argument in errors.
func chooseOption(cmd *cobra.Command, title string, dd page.Dropdown, what string) (string, bool, error) {
	if !isInteractive(cmd) {
		return "", false, fmt.Errorf("%s argument required when stdin is not a terminal", what)
	}
	if len(dd.Choices()) == 0 {
		return "", false, fmt.Errorf("no %s to choose from", what)
	}
	return pickOption(cmd, title, dd)
}
