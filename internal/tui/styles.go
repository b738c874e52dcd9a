package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// progressBar draws a fraction in [0, 1] as a width-cell bar.
func progressBar(fraction float64, width int) string {
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction * float64(width))
	return cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", width-filled))
}

// sparkline scales the last width values between their min and max.
func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	rng := maxVal - minVal
	if rng == 0 {
		rng = 1
	}

	var sb strings.Builder
	for _, v := range data {
		idx := int((v - minVal) / rng * float64(len(sparkChars)-1))
		idx = min(max(idx, 0), len(sparkChars)-1)
		sb.WriteRune(sparkChars[idx])
	}
	return sb.String()
}

// driftStyle colours a relative energy error by magnitude.
func driftStyle(drift float64) lipgloss.Style {
	switch {
	case drift < 1e-6:
		return green
	case drift < 1e-3:
		return yellow
	default:
		return red
	}
}
