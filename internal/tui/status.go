package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var statusStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#7D7A85")).
	Padding(0, 1)

// statusLine 渲染底部状态栏：代理名、存活状态、错误与加载指示。
func statusLine(agent string, alive, pending bool, err error, width int, spin string) string {
	parts := []string{
		fmt.Sprintf("Agent: %s", agent),
	}
	if alive {
		parts = append(parts, "up")
	} else {
		parts = append(parts, "down")
	}
	if pending {
		parts = append(parts, "Working… "+spin)
	}
	if err != nil {
		parts = append(parts, fmt.Sprintf("Error: %v", err))
	}
	line := strings.Join(parts, " • ")
	if width > 4 {
		line = runewidth.Truncate(line, width-4, "…")
	}
	return statusStyle.Width(maxInt(20, width)).Render(line)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
