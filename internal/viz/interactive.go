package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fmigo/internal/driver"
	"fmigo/internal/fixtures"
	"fmigo/internal/fmi"
	"fmigo/internal/modelcache"
	"fmigo/internal/modeldesc"
	"fmigo/internal/steppers"
	"fmigo/internal/trace"
)

// capDescription retrieves a fixture's model description, memoized by
// name through modelcache so re-entering the same fixture from the menu
// doesn't rebuild its Variables table every time.
func capDescription(name string, cap fmi.Capability) *modeldesc.Description {
	desc, err := modelcache.GetOrLoad(name, func() (*modeldesc.Description, error) {
		d, ok := cap.(interface{ Description() *modeldesc.Description })
		if !ok {
			return &modeldesc.Description{}, nil
		}
		return d.Description(), nil
	})
	if err != nil {
		return &modeldesc.Description{}
	}
	return desc
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// model is the top-level bubbletea program: a menu of fixture models,
// a config screen for driver settings, then the live view, mirroring
// the teacher's three-screen interactive app structure.
type model struct {
	screen, cursor int
	models         []string
	selected       string

	stepperCursor int
	stepperTags   []steppers.Tag
	eventPrec     float64
	tEnd, dtHint  float64
	paramCursor   int

	err       error
	liveModel Model
	width     int
}

// NewInteractiveApp returns the menu screen listing every fixture in
// fixtures.Names.
func NewInteractiveApp() *model {
	return &model{
		screen:      stateMenu,
		models:      fixtures.Names(),
		stepperTags: steppers.Tags(),
		eventPrec:   1e-4,
		tEnd:        5.0,
		dtHint:      0.05,
		width:       80,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.screen == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	default:
		if m.screen == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.screen {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.models)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.models[m.cursor]
		m.screen, m.paramCursor = stateConfig, 0
	}
	return m, nil
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.screen = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < 2 {
			m.paramCursor++
		}
	case "left", "h":
		m.adjust(-1)
	case "right", "l":
		m.adjust(1)
	case "s":
		return m.start()
	}
	return m, nil
}

// adjust nudges the parameter at paramCursor: 0 selects the stepper
// family, 1 the event-search precision, 2 the integration span.
func (m *model) adjust(dir int) {
	switch m.paramCursor {
	case 0:
		n := len(m.stepperTags)
		m.stepperCursor = (m.stepperCursor + dir + n) % n
	case 1:
		if dir > 0 {
			m.eventPrec *= 10
		} else {
			m.eventPrec /= 10
		}
	case 2:
		m.tEnd += float64(dir)
		if m.tEnd < m.dtHint {
			m.tEnd = m.dtHint
		}
	}
}

func (m model) start() (model, tea.Cmd) {
	cap, ok := fixtures.New(m.selected)
	if !ok {
		m.err = fmt.Errorf("unknown fixture %q", m.selected)
		return m, nil
	}

	tag := m.stepperTags[m.stepperCursor]
	drv, err := driver.Instantiate(cap, capDescription(m.selected, cap), driver.Config{
		Stepper:              tag,
		StopBeforeEvent:      true,
		EventSearchPrecision: m.eventPrec,
	})
	if err != nil {
		m.err = err
		return m, nil
	}
	if err := drv.Initialize(); err != nil {
		m.err = err
		return m, nil
	}

	rec := trace.New()
	rec.Record(drv.Time(), drv.State())
	m.liveModel = NewModel(drv, rec, m.selected, string(tag), m.tEnd, m.dtHint, m.dtHint*4)
	m.screen = stateSim
	return m, m.liveModel.Init()
}

func (m model) View() string {
	switch m.screen {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder
	h, sub := lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true), lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	b.WriteString("\n\n    " + h.Render("FMIGO") + "\n    " + sub.Render("model-exchange integration core") + "\n    " + sub.Render("─────────────────────────") + "\n\n")
	for i, name := range m.models {
		desc := fixtures.Info[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n",
				lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true).Render("▸"),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true).Render(fmt.Sprintf("%-12s", name)),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n",
				lipgloss.NewStyle().Foreground(lipgloss.Color("#555566")).Render(fmt.Sprintf("  %-12s", name)),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#444455")).Render(desc)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    j/k navigate  enter select  q quit\n")
	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder
	h, sub := lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true), lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	b.WriteString("\n\n    " + h.Render(strings.ToUpper(m.selected)) + "\n    " + sub.Render(fixtures.Info[m.selected]) + "\n    " + sub.Render("─────────────────────────") + "\n\n")

	rows := []struct {
		name, val string
	}{
		{"stepper", string(m.stepperTags[m.stepperCursor])},
		{"eventSearchPrecision", fmt.Sprintf("%.1e", m.eventPrec)},
		{"tEnd", fmt.Sprintf("%.3f", m.tEnd)},
	}
	for i, row := range rows {
		if i == m.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n",
				lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true).Render("▸"),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true).Render(fmt.Sprintf("%-24s", row.name)),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Bold(true).Render(row.val)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n",
				lipgloss.NewStyle().Foreground(lipgloss.Color("#555566")).Render(fmt.Sprintf("  %-24s", row.name)),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#444455")).Render(row.val)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    j/k select  h/l adjust  s start  esc back\n")
	return b.String()
}

// RunInteractive launches the fixture-selection TUI.
func RunInteractive() error {
	_, err := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen()).Run()
	return err
}
