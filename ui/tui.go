package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lumenworks/shuttle/engine"
)

// SampleMsg carries one progress sample into the UI loop.
type SampleMsg engine.Sample

// ErrorMsg carries a job-level error into the UI loop.
type ErrorMsg struct {
	JobID string
	Msg   string
}

// DoneMsg tells the UI the engine has no more work.
type DoneMsg struct{}

// Model renders the live state of every observed job: one row per job with
// a progress bar, current file, throughput and ETA.
type Model struct {
	samples map[string]engine.Sample
	order   []string
	errs    []string
	done    bool

	spinner  spinner.Model
	progress progress.Model
	width    int

	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	fileStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	helpStyle    lipgloss.Style
}

// NewModel creates an empty job progress view.
func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		samples:      make(map[string]engine.Sample),
		spinner:      s,
		progress:     progress.New(progress.WithDefaultGradient()),
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		fileStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		helpStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width / 3

	case SampleMsg:
		s := engine.Sample(msg)
		if _, seen := m.samples[s.JobID]; !seen {
			m.order = append(m.order, s.JobID)
		}
		m.samples[s.JobID] = s

	case ErrorMsg:
		m.errs = append(m.errs, fmt.Sprintf("%s: %s", shortID(msg.JobID), msg.Msg))
		if len(m.errs) > 5 {
			m.errs = m.errs[len(m.errs)-5:]
		}

	case DoneMsg:
		m.done = true

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	var sb strings.Builder

	header := fmt.Sprintf("%s %s", m.spinner.View(), m.titleStyle.Render("Shuttle Transfer Jobs"))
	if m.done {
		header = m.successStyle.Render("All transfers finished.")
	}
	sb.WriteString(header + "\n\n")

	if len(m.order) == 0 {
		sb.WriteString(m.infoStyle.Render("Waiting for progress...") + "\n")
	}

	for _, id := range m.order {
		s := m.samples[id]

		var pct float64
		if s.BytesTotal > 0 {
			pct = float64(s.BytesDone) / float64(s.BytesTotal)
			if pct > 1 {
				pct = 1
			}
		}

		line := fmt.Sprintf("%s %s  %d/%d files", shortID(s.JobID), m.progress.ViewAs(pct), s.FilesDone, s.FilesTotal)
		if s.FilesSkipped > 0 {
			line += m.errorStyle.Render(fmt.Sprintf("  %d skipped", s.FilesSkipped))
		}
		line += m.infoStyle.Render(fmt.Sprintf("  %s  ETA %s", formatSpeed(s.Speed), formatETA(s.ETASeconds)))
		sb.WriteString(line + "\n")
		sb.WriteString("  " + m.fileStyle.Render(truncatePath(s.FileName, 60)) + "\n")
	}

	for _, e := range m.errs {
		sb.WriteString(m.errorStyle.Render(e) + "\n")
	}

	help := "q/ctrl+c: quit"
	if m.done {
		help = "Press 'q' to exit."
	}
	sb.WriteString(m.helpStyle.Render(help))

	return sb.String()
}

// Reporter adapts the engine's observer contract onto a running bubbletea
// program. Emissions flow through a buffered channel drained by a single
// forwarder, so the program sees them in emission order; when the buffer is
// full the message is dropped rather than blocking the transfer. A dropped
// sample is harmless since every sample carries absolute counters.
type Reporter struct {
	msgs chan tea.Msg
}

// sampleBuffer bounds how many undelivered messages queue up before
// emissions are dropped.
const sampleBuffer = 256

type sender interface {
	Send(tea.Msg)
}

func NewReporter(program *tea.Program) *Reporter {
	if program == nil {
		return &Reporter{}
	}
	return newReporter(program, sampleBuffer)
}

func newReporter(s sender, buffer int) *Reporter {
	r := &Reporter{msgs: make(chan tea.Msg, buffer)}
	go func() {
		for msg := range r.msgs {
			s.Send(msg)
		}
	}()
	return r
}

func (r *Reporter) Emit(s engine.Sample) {
	r.send(SampleMsg(s))
}

func (r *Reporter) EmitError(jobID string, msg string) {
	r.send(ErrorMsg{JobID: jobID, Msg: msg})
}

func (r *Reporter) send(msg tea.Msg) {
	if r.msgs == nil {
		return
	}
	select {
	case r.msgs <- msg:
	default:
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncatePath(p string, max int) string {
	if len(p) <= max {
		return p
	}
	return "..." + p[len(p)-max+3:]
}

func formatSpeed(bytesPerSec float64) string {
	switch {
	case bytesPerSec >= 1024*1024*1024:
		return fmt.Sprintf("%.2f GB/s", bytesPerSec/(1024*1024*1024))
	case bytesPerSec >= 1024*1024:
		return fmt.Sprintf("%.2f MB/s", bytesPerSec/(1024*1024))
	case bytesPerSec >= 1024:
		return fmt.Sprintf("%.2f KB/s", bytesPerSec/1024)
	}
	return fmt.Sprintf("%.0f B/s", bytesPerSec)
}

func formatETA(seconds float64) string {
	if seconds <= 0 {
		return "--"
	}
	d := time.Duration(seconds * float64(time.Second))
	if d.Hours() > 24 {
		return "> 1d"
	}
	return d.Round(time.Second).String()
}
