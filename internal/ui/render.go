package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/loqalabs/loqa-interview/internal/interview"
)

const answerPlaceholder = "Your answer will appear here..."

// renderHeader renders the title bar.
func renderHeader(noColor bool) string {
	title := "AI Interview Session"
	if noColor {
		return title + "\n"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")).Render(title) + "\n"
}

// renderCamera renders the preview status line.
func renderCamera(active bool, status string, present, noColor bool) string {
	if !present {
		return ""
	}
	line := "Camera: off"
	color := lipgloss.Color("242")
	switch {
	case active:
		line = "Camera: on (make sure you're well-centered and in a well-lit environment)"
		color = lipgloss.Color("35")
	case status != "":
		line = status
		color = lipgloss.Color("214")
	}
	return stylize(line, noColor, color)
}

// renderQuestion renders the current question, countdown and live transcript.
func renderQuestion(snap interview.Snapshot, width int, noColor bool) string {
	if snap.QuestionCount == 0 {
		return "Loading session..."
	}
	heading := fmt.Sprintf("Question %d/%d:", snap.QuestionIndex+1, snap.QuestionCount)
	timer := fmt.Sprintf("%ds", snap.RemainingSeconds)
	if snap.Recording {
		timer = "● REC " + timer
	}
	answer := snap.Transcript
	if answer == "" {
		answer = answerPlaceholder
	}

	lines := []string{
		stylize(heading, noColor, lipgloss.Color("252")),
		wrap(snap.Prompt, width),
		"",
		"Your Answer:  " + stylize(timer, noColor, timerColor(snap)),
		box(wrap(answer, width-4), width, noColor),
		renderControls(snap, noColor),
	}
	return strings.Join(lines, "\n")
}

func renderControls(snap interview.Snapshot, noColor bool) string {
	record := "[r] Start Recording"
	if snap.Recording {
		record = "[r] Stop Recording"
	}
	if !snap.SpeechAvailable {
		record = stylize(record+" (unavailable)", noColor, lipgloss.Color("240"))
	}
	if snap.CanAdvance {
		return record + "   [n] Next Question"
	}
	return record
}

// renderCompletion renders the final score, its bar and the feedback text.
func renderCompletion(snap interview.Snapshot, bar progress.Model, noColor bool) string {
	lines := []string{
		stylize("Interview Complete!", noColor, lipgloss.Color("33")),
		"",
		bar.ViewAs(snap.FinalScore / 100),
		fmt.Sprintf("Accuracy Score: %.1f%%", snap.FinalScore),
		"",
		snap.Feedback,
		"",
	}
	for _, rec := range snap.Records {
		line := fmt.Sprintf("  Q%-2d %5.1f%%  %s", rec.QuestionIndex+1, rec.Score, strings.Join(rec.Matched, ", "))
		lines = append(lines, stylize(line, noColor, lipgloss.Color("244")))
	}
	return strings.Join(lines, "\n")
}

// renderStatus renders the last command error or capture failure.
func renderStatus(status string, snap interview.Snapshot, noColor bool) string {
	if status == "" && snap.CaptureError != "" {
		status = "Recording stopped: " + snap.CaptureError
		if snap.CanAdvance {
			status += " (press n to submit what was heard, r to retry)"
		}
	}
	if status == "" {
		return ""
	}
	return stylize(status, noColor, lipgloss.Color("196"))
}

func timerColor(snap interview.Snapshot) lipgloss.Color {
	switch {
	case !snap.Recording:
		return lipgloss.Color("242")
	case snap.RemainingSeconds <= 10:
		return lipgloss.Color("196")
	default:
		return lipgloss.Color("35")
	}
}

func box(text string, width int, noColor bool) string {
	style := lipgloss.NewStyle().Padding(0, 1).Width(max(width-2, 10))
	if !noColor {
		style = style.Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	} else {
		style = style.Border(lipgloss.NormalBorder())
	}
	return style.Render(text)
}

func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
