package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"fmigo/internal/driver"
	"fmigo/internal/fmicore"
	"fmigo/internal/trace"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(48)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	graphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
	eventStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// TickMsg drives one simulation step per frame, mirroring the teacher's
// fixed-rate render loop.
type TickMsg time.Time

// Model is the bubbletea program that drives a Driver forward and
// renders its trajectory and event timeline live, adapted from the
// teacher's physics-state live view onto FMI integration state.
type Model struct {
	drv         *driver.Driver
	rec         *trace.Recorder
	modelName   string
	stepperName string

	tEnd, dtHint, visualStep float64

	width, height int
	canvas        *Canvas
	trail         []struct{ x, y int }

	running bool
	done    bool
	err     error

	stateHistory   [][]float64
	firstComponent []float64
	eventLog       []string
	showHelp       bool

	camera3D *Camera
	trail3D  []Vec3
}

// NewModel wires drv into a live view that advances it toward tEnd in
// steps of at most visualStep, recording every sample into rec.
func NewModel(drv *driver.Driver, rec *trace.Recorder, modelName, stepperName string, tEnd, dtHint, visualStep float64) Model {
	return Model{
		drv:            drv,
		rec:            rec,
		modelName:      modelName,
		stepperName:    stepperName,
		tEnd:           tEnd,
		dtHint:         dtHint,
		visualStep:     visualStep,
		width:          width,
		height:         height,
		canvas:         NewCanvas(width, height),
		trail:          make([]struct{ x, y int }, 0, 200),
		running:        true,
		stateHistory:   make([][]float64, 0, historyCapacity),
		firstComponent: make([]float64, 0, historyCapacity),
		camera3D:       NewCamera(),
		trail3D:        make([]Vec3, 0, 400),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "t":
			names := ThemeNames()
			for i, name := range names {
				if name == CurrentTheme.Name {
					SetTheme(names[(i+1)%len(names)])
					break
				}
			}
		case "?":
			m.showHelp = !m.showHelp
		case "left":
			m.camera3D.RotateY(-0.2)
		case "right":
			m.camera3D.RotateY(0.2)
		case "up":
			m.camera3D.RotateX(-0.2)
		case "down":
			m.camera3D.RotateX(0.2)
		case "+", "=":
			m.camera3D.ZoomIn()
		case "-", "_":
			m.camera3D.ZoomOut()
		}
	case TickMsg:
		if m.running && !m.done {
			m.step()
		}
		m.draw()
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// step advances the driver by one visual increment and records the
// result, matching the teacher's step()'s role in its own tick loop.
func (m *Model) step() {
	target := m.drv.Time() + m.visualStep
	if target > m.tEnd {
		target = m.tEnd
	}

	pendingBefore := m.drv.Pending()
	newT, err := m.drv.Integrate(target, m.dtHint)
	if err != nil {
		m.err = err
		m.running = false
		return
	}

	state := m.drv.State()
	m.rec.Record(newT, state)

	pendingAfter := m.drv.Pending()
	if pendingBefore.None() && !pendingAfter.None() {
		kind := "state"
		if pendingAfter.Kind == fmicore.PendingTime {
			kind = "time"
		}
		m.rec.RecordEvent(newT, kind)
		m.eventLog = append(m.eventLog, fmt.Sprintf("t=%.6f %s event latched", newT, kind))
		if len(m.eventLog) > 8 {
			m.eventLog = m.eventLog[1:]
		}
	}

	stateCopy := append([]float64(nil), state...)
	m.stateHistory = append(m.stateHistory, stateCopy)
	if len(m.stateHistory) > historyCapacity {
		m.stateHistory = m.stateHistory[1:]
	}
	if len(state) > 0 {
		m.firstComponent = append(m.firstComponent, state[0])
		if len(m.firstComponent) > historyCapacity {
			m.firstComponent = m.firstComponent[1:]
		}
	}
	if len(state) >= 3 {
		m.trail3D = append(m.trail3D, Vec3{X: state[0], Y: state[1], Z: state[2]})
		if len(m.trail3D) > 400 {
			m.trail3D = m.trail3D[1:]
		}
	}

	if newT >= m.tEnd-1e-12 {
		m.done = true
		m.running = false
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	state := m.drv.State()
	switch {
	case len(state) >= 3:
		m.drawPhasePlane3D()
	case len(state) == 2:
		m.drawPhasePlane(state[0], state[1])
	case len(state) == 1:
		m.drawScalar(state[0])
	default:
		m.drawIndicatorOnly()
	}
}

// drawPhasePlane3D projects the trailing history of a system with three
// or more state components onto the canvas via a rotating camera,
// alongside a fixed axes wireframe for orientation.
func (m *Model) drawPhasePlane3D() {
	wf := CreateAxesWireframe(3.0)
	for _, p := range m.trail3D {
		wf.AddPoint(p, 'o')
	}
	Render3D(m.canvas, wf, m.camera3D)
}

func (m *Model) drawPhasePlane(x0, x1 float64) {
	cw, ch := m.width*2, m.height*4
	cx, cy := cw/2, ch/2
	scale := float64(ch) / 12.0
	px, py := cx+int(x0*scale), cy-int(x1*scale)
	if px < 0 {
		px = 0
	}
	if px >= cw {
		px = cw - 1
	}
	if py < 0 {
		py = 0
	}
	if py >= ch {
		py = ch - 1
	}
	m.trail = append(m.trail, struct{ x, y int }{px, py})
	if len(m.trail) > 400 {
		m.trail = m.trail[1:]
	}
	m.canvas.DrawLine(0, cy, cw-1, cy)
	m.canvas.DrawLine(cx, 0, cx, ch-1)
	for _, pt := range m.trail {
		m.canvas.Set(pt.x, pt.y)
	}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			m.canvas.Set(px+dx, py+dy)
		}
	}
}

func (m *Model) drawScalar(x float64) {
	cw, ch := m.width*2, m.height*4
	cy := ch / 2
	scale := float64(ch) / 8.0
	py := cy - int(x*scale)
	if py < 0 {
		py = 0
	}
	if py >= ch {
		py = ch - 1
	}
	m.trail = append(m.trail, struct{ x, y int }{len(m.trail) % cw, py})
	if len(m.trail) > cw {
		m.trail = m.trail[1:]
	}
	m.canvas.DrawLine(0, cy, cw-1, cy)
	for i, pt := range m.trail {
		m.canvas.Set(i, pt.y)
	}
}

func (m *Model) drawIndicatorOnly() {
	cw, ch := m.width*2, m.height*4
	m.canvas.DrawLine(0, ch/2, cw-1, ch/2)
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.modelName)) + "\n")

	status := "RUNNING"
	if m.done {
		status = "DONE"
	} else if !m.running {
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	if len(m.firstComponent) > 1 {
		chart := asciigraph.Plot(m.firstComponent, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("x0"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.6f / %.6f", m.drv.Time(), m.tEnd)) + "\n")
	s.WriteString(labelStyle.Render("Stepper") + valueStyle.Render(m.stepperName) + "\n")
	s.WriteString(labelStyle.Render("Progress") + ProgressBar(m.drv.Time()/m.tEnd, 20) + "\n")

	pending := m.drv.Pending()
	if !pending.None() {
		s.WriteString(labelStyle.Render("Pending") + pendingStyle.Render(fmt.Sprintf("[%.6f, %.6f]", pending.TLower, pending.TUpper)) + "\n")
	} else {
		s.WriteString(labelStyle.Render("Pending") + valueStyle.Render("none") + "\n")
	}

	state := m.drv.State()
	s.WriteString(labelStyle.Render("State") + valueStyle.Render(formatState(state)) + "\n")

	if m.err != nil {
		s.WriteString(labelStyle.Render("Error") + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.err.Error()) + "\n")
	}

	s.WriteString("\n" + Separator(40) + "\nEVENTS\n")
	if len(m.eventLog) == 0 {
		s.WriteString(labelStyle.Render("  (none yet)") + "\n")
	}
	for _, e := range m.eventLog {
		s.WriteString(eventStyle.Render("  "+e) + "\n")
	}

	s.WriteString(helpStyle.Render("\nSPACE:pause  T:theme  ?:help  Q:quit"))
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)

	if m.showHelp {
		return BoxWithTitle("Keyboard Shortcuts", "Space  pause/resume\nT      cycle theme\nQ      quit\n?      toggle help\nArrows rotate camera (3+ state systems)\n+/-    zoom camera", 40) + "\n\n" + mainView
	}
	return mainView
}

func formatState(state fmicore.StateVector) string {
	if len(state) == 0 {
		return "(none)"
	}
	parts := make([]string, len(state))
	for i, v := range state {
		parts[i] = fmt.Sprintf("%.4f", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
