package picker

import (
	"context"
	"dosgo/btSerial/comm"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)

type deviceItem struct {
	dev comm.DeviceHandle
}

func (i deviceItem) Title() string       { return title(i.dev) }
func (i deviceItem) Description() string { return describe(i.dev) }
func (i deviceItem) FilterValue() string { return i.dev.Name + " " + i.dev.Address }

type model struct {
	list      list.Model
	chosen    comm.DeviceHandle
	picked    bool
	cancelled bool
}

func newModel(devices []comm.DeviceHandle) model {
	items := make([]list.Item, 0, len(devices))
	for _, dev := range devices {
		items = append(items, deviceItem{dev: dev})
	}
	l := list.New(items, list.NewDefaultDelegate(), 60, 20)
	l.Title = "Select a Bluetooth device"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	return model{list: l}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
		return m, nil

	case tea.KeyMsg:
		// keys go to the filter input while the user is typing a filter
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			if item, ok := m.list.SelectedItem().(deviceItem); ok {
				m.chosen = item.dev
				m.picked = true
			} else {
				m.cancelled = true
			}
			return m, tea.Quit
		}
		if msg.String() == "q" {
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	return m.list.View()
}

// Terminal shows the devices of Source as a filterable list on the
// terminal. Enter picks the highlighted device. Esc, q and Ctrl+C cancel.
type Terminal struct {
	Source Source
	// Input and Output default to the process terminal.
	Input  io.Reader
	Output io.Writer
}

func (p *Terminal) PickDevice(ctx context.Context) (comm.DeviceHandle, bool, error) {
	devices, err := p.Source.Devices(ctx)
	if err != nil {
		return comm.DeviceHandle{}, false, fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		return comm.DeviceHandle{}, false, nil
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if p.Input != nil {
		opts = append(opts, tea.WithInput(p.Input))
	}
	if p.Output != nil {
		opts = append(opts, tea.WithOutput(p.Output))
	}

	final, err := tea.NewProgram(newModel(devices), opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return comm.DeviceHandle{}, false, ctx.Err()
		}
		return comm.DeviceHandle{}, false, fmt.Errorf("device picker: %w", err)
	}
	m, ok := final.(model)
	if !ok || !m.picked {
		return comm.DeviceHandle{}, false, nil
	}
	return m.chosen, true, nil
}
