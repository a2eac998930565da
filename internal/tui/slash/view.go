package slash

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	nameStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C4A1FF"))
	descStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	highlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EBCB8B"))
	selectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#2F2A3D"))
)

// View 渲染弹窗内容（不含外围边框）。
func (s *State) View(width int) string {
	if s == nil || !s.open {
		return ""
	}
	contentWidth := width
	if contentWidth <= 20 {
		contentWidth = 20
	}
	if len(s.matches) == 0 {
		return lipgloss.NewStyle().Width(contentWidth).Render("no matches")
	}

	nameWidth := 0
	for _, m := range s.matches {
		if w := runewidth.StringWidth(m.item.DisplayName()); w > nameWidth {
			nameWidth = w
		}
	}
	if nameWidth < 10 {
		nameWidth = 10
	}

	limit := len(s.matches)
	if limit > s.maxLines {
		limit = s.maxLines
	}
	start := 0
	if s.selected >= limit {
		start = s.selected - limit + 1
	}

	lines := make([]string, 0, limit)
	for i := start; i < start+limit && i < len(s.matches); i++ {
		m := s.matches[i]
		name := applyHighlights(m.item.DisplayName(), m.highlights, nameWidth)
		line := fmt.Sprintf("%s  %s", nameStyle.Render(name), descStyle.Render(m.item.Description))
		if i == s.selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return lipgloss.NewStyle().Width(contentWidth).Render(strings.Join(lines, "\n"))
}

func applyHighlights(name string, indexes []int, width int) string {
	runes := []rune(name)
	if len(indexes) > 0 {
		// fuzzy 匹配下标基于无斜杠的 token，整体右移一位。
		marked := map[int]bool{}
		for _, idx := range indexes {
			marked[idx+1] = true
		}
		parts := make([]string, 0, len(runes))
		for i, r := range runes {
			ch := string(r)
			if marked[i] {
				parts = append(parts, highlightStyle.Render(ch))
				continue
			}
			parts = append(parts, ch)
		}
		name = strings.Join(parts, "")
	}
	pad := width - runewidth.StringWidth(string(runes))
	if pad > 0 {
		name += strings.Repeat(" ", pad)
	}
	return name
}
