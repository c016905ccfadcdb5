package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/loqalabs/loqa-interview/internal/interview"
)

// Controller runs commands against the session owned by the driver.
type Controller interface {
	Call(ctx context.Context, fn func(*interview.Session) error) error
}

// Camera is the preview the candidate can toggle.
type Camera interface {
	Toggle(ctx context.Context) bool
	Active() bool
	Status() string
}

// Options configures the interview UI model.
type Options struct {
	NoColor bool
	Width   int
}

// Model renders the interview session in the terminal using Bubble Tea.
type Model struct {
	ctx        context.Context
	snapshots  <-chan interview.Snapshot
	controller Controller
	camera     Camera

	snap      interview.Snapshot
	keys      keyMap
	help      help.Model
	progress  progress.Model
	width     int
	noColor   bool
	status    string
	cameraOn  bool
	cameraMsg string
}

// NewModel builds a model fed by snapshots. camera may be nil.
func NewModel(ctx context.Context, snapshots <-chan interview.Snapshot, controller Controller, camera Camera, opts Options) Model {
	width := opts.Width
	if width <= 0 {
		width = 72
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	if opts.NoColor {
		bar = progress.New(progress.WithSolidFill("7"), progress.WithoutPercentage())
	}
	bar.Width = min(width-4, 48)
	return Model{
		ctx:        ctx,
		snapshots:  snapshots,
		controller: controller,
		camera:     camera,
		keys:       defaultKeys(),
		help:       help.New(),
		progress:   bar,
		width:      width,
		noColor:    opts.NoColor,
	}
}

// snapshotMsg carries a new session state.
type snapshotMsg struct {
	Snapshot interview.Snapshot
}

// commandResultMsg reports the outcome of a session command.
type commandResultMsg struct {
	Err error
}

// cameraMsg reports the preview state after a toggle.
type cameraMsg struct {
	Active bool
	Status string
}

// Init waits for the first snapshot and starts the camera preview.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.snapshots), m.toggleCamera())
}

// Update consumes snapshots and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.help.Width = typed.Width
		m.progress.Width = min(typed.Width-4, 48)
		return m, nil
	case snapshotMsg:
		m.snap = typed.Snapshot
		return m, waitForSnapshot(m.snapshots)
	case commandResultMsg:
		m.status = statusFor(typed.Err)
		return m, nil
	case cameraMsg:
		m.cameraOn = typed.Active
		m.cameraMsg = typed.Status
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Record):
		if m.snap.Complete {
			return m, nil
		}
		if m.snap.Recording {
			return m, m.run(func(s *interview.Session) error {
				_, err := s.StopRecording()
				return err
			})
		}
		if !m.snap.SpeechAvailable {
			m.status = statusFor(interview.ErrSpeechUnsupported)
			return m, nil
		}
		return m, m.run(func(s *interview.Session) error { return s.StartRecording() })
	case key.Matches(msg, m.keys.Next):
		if !m.snap.CanAdvance {
			return m, nil
		}
		return m, m.run(func(s *interview.Session) error {
			_, err := s.NextQuestion()
			return err
		})
	case key.Matches(msg, m.keys.Restart):
		return m, m.run(func(s *interview.Session) error {
			s.BeginSession()
			return nil
		})
	case key.Matches(msg, m.keys.Camera):
		return m, m.toggleCamera()
	}
	return m, nil
}

// View renders the question screen or the completion screen.
func (m Model) View() string {
	var body string
	if m.snap.Complete {
		body = renderCompletion(m.snap, m.progress, m.noColor)
	} else {
		body = renderQuestion(m.snap, m.width, m.noColor)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(m.noColor),
		renderCamera(m.cameraOn, m.cameraMsg, m.camera != nil, m.noColor),
		body,
		renderStatus(m.status, m.snap, m.noColor),
		m.help.View(m.keys),
	)
}

func (m Model) run(fn func(*interview.Session) error) tea.Cmd {
	controller, ctx := m.controller, m.ctx
	return func() tea.Msg {
		return commandResultMsg{Err: controller.Call(ctx, fn)}
	}
}

func (m Model) toggleCamera() tea.Cmd {
	if m.camera == nil {
		return nil
	}
	camera, ctx := m.camera, m.ctx
	return func() tea.Msg {
		active := camera.Toggle(ctx)
		return cameraMsg{Active: active, Status: camera.Status()}
	}
}

// waitForSnapshot blocks until the driver publishes a new state.
func waitForSnapshot(snapshots <-chan interview.Snapshot) tea.Cmd {
	return func() tea.Msg {
		if snapshots == nil {
			return nil
		}
		snap, ok := <-snapshots
		if !ok {
			return tea.Quit()
		}
		return snapshotMsg{Snapshot: snap}
	}
}

func statusFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, interview.ErrSpeechUnsupported):
		return "Speech recognition is not supported in this environment."
	case errors.Is(err, interview.ErrNothingToAdvance):
		return "Record an answer before moving on."
	default:
		return err.Error()
	}
}
