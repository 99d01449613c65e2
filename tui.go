package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sage/ai"
	"sage/beep"
	"sage/dispatch"
)

// TUI message types
type TranscriptMsg struct{ Text string }
type TranscriptClearMsg struct{}
type AnswerMsg struct {
	Q dispatch.Question
	A ai.Answer
}
type ImageMsg struct{ Name string }
type StatusMsg struct {
	Level dispatch.StatusLevel
	Text  string
}
type RecordingMsg struct{ Active bool }
type FrozenMsg struct{ Frozen bool }

// tuiControls are the key bindings' targets, wired by main.
type tuiControls struct {
	startRecording func()
	stopRecording  func()
	clear          func()
	toggleFreeze   func()
	copyAnswer     func(text string)
}

type tuiModel struct {
	ctl tuiControls

	transcript    string
	answerTitle   string
	answerBody    string
	status        string
	statusLevel   dispatch.StatusLevel
	recording     bool
	frozen        bool
	lastImage     string
	answerCount   int
	width, height int
}

// tuiSink forwards dispatcher events into the bubbletea program.
type tuiSink struct{ p *tea.Program }

func (s *tuiSink) TranscriptUpdate(text string) { s.p.Send(TranscriptMsg{Text: text}) }
func (s *tuiSink) TranscriptCleared()           { s.p.Send(TranscriptClearMsg{}) }
func (s *tuiSink) AnswerDelivered(q dispatch.Question, a ai.Answer) {
	if a.Relevant {
		beep.PlayAnswer()
	} else {
		beep.PlayError()
	}
	s.p.Send(AnswerMsg{Q: q, A: a})
}
func (s *tuiSink) ImageDetected(name, localPath string) { s.p.Send(ImageMsg{Name: name}) }
func (s *tuiSink) Status(level dispatch.StatusLevel, message string) {
	s.p.Send(StatusMsg{Level: level, Text: message})
}
func (s *tuiSink) RecordingState(active bool) { s.p.Send(RecordingMsg{Active: active}) }
func (s *tuiSink) FrozenState(frozen bool)    { s.p.Send(FrozenMsg{Frozen: frozen}) }

func NewTUIProgram(ctl tuiControls) *tea.Program {
	m := tuiModel{ctl: ctl, status: "ready"}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			if !m.recording && m.ctl.startRecording != nil {
				m.ctl.startRecording()
			}
		case "s":
			if m.recording && m.ctl.stopRecording != nil {
				m.ctl.stopRecording()
			}
		case "c":
			if m.ctl.clear != nil {
				m.ctl.clear()
			}
		case "f":
			if m.ctl.toggleFreeze != nil {
				m.ctl.toggleFreeze()
			}
		case "y":
			if m.answerBody != "" && m.ctl.copyAnswer != nil {
				m.ctl.copyAnswer(m.answerBody)
			}
		}

	case TranscriptMsg:
		m.transcript = msg.Text

	case TranscriptClearMsg:
		m.transcript = ""

	case AnswerMsg:
		m.answerCount++
		m.answerTitle = answerTitle(msg.Q)
		m.answerBody = msg.A.Body
		if msg.A.Relevant {
			m.status = "answer ready"
			m.statusLevel = dispatch.StatusGood
		} else {
			m.status = "AI call failed"
			m.statusLevel = dispatch.StatusError
		}

	case ImageMsg:
		m.lastImage = msg.Name

	case StatusMsg:
		m.status = msg.Text
		m.statusLevel = msg.Level

	case RecordingMsg:
		m.recording = msg.Active

	case FrozenMsg:
		m.frozen = msg.Frozen
	}
	return m, nil
}

var tuiStatusColors = map[dispatch.StatusLevel]lipgloss.Color{
	dispatch.StatusInfo:   lipgloss.Color("245"),
	dispatch.StatusGood:   lipgloss.Color("42"),
	dispatch.StatusNotice: lipgloss.Color("39"),
	dispatch.StatusWarn:   lipgloss.Color("208"),
	dispatch.StatusError:  lipgloss.Color("196"),
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var header string
	if m.recording {
		header = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Render("● REC")
	} else {
		header = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("○ STANDBY")
	}
	if m.frozen {
		header += "  " + lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Render("❄ AI FROZEN")
	}
	header += "  " + lipgloss.NewStyle().
		Foreground(tuiStatusColors[m.statusLevel]).
		Render(m.status)

	leftWidth := m.width / 3
	if leftWidth < 24 {
		leftWidth = 24
	}
	rightWidth := m.width - leftWidth - 1
	if rightWidth < 20 {
		rightWidth = 20
	}
	panelHeight := m.height - 3

	var left strings.Builder
	left.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color("246")).
		Render("Transcript") + "\n\n")
	transcript := m.transcript
	if transcript == "" {
		transcript = "(listening for speech)"
	}
	textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	for _, line := range wrapText(transcript, leftWidth-2) {
		left.WriteString(textStyle.Render(line) + "\n")
	}
	if m.lastImage != "" {
		left.WriteString("\n" + lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Render("last image: "+m.lastImage) + "\n")
	}

	var right strings.Builder
	if m.answerBody != "" {
		title := lipgloss.NewStyle().
			Foreground(lipgloss.Color("246")).
			Render(fmt.Sprintf("%s (#%d)", m.answerTitle, m.answerCount))
		right.WriteString(title + "\n\n")
		answerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		for _, raw := range strings.Split(m.answerBody, "\n") {
			for _, line := range wrapText(raw, rightWidth-2) {
				right.WriteString(answerStyle.Render(line) + "\n")
			}
		}
	} else {
		right.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("No answers yet"))
	}

	leftPanel := lipgloss.NewStyle().
		Width(leftWidth).
		Height(panelHeight).
		PaddingLeft(1).
		Render(left.String())
	rightPanel := lipgloss.NewStyle().
		Width(rightWidth).
		Height(panelHeight).
		PaddingLeft(1).
		Render(right.String())

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	help := helpStyle.Render("r record  s stop  c clear  f freeze  y copy answer  q quit")

	return header + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel) + "\n" +
		help
}

func answerTitle(q dispatch.Question) string {
	if q.Kind == dispatch.KindImage {
		return "Screenshot " + q.ImageName
	}
	return "Spoken question"
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
