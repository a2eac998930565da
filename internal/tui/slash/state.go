package slash

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
)

// Input 表示当前文本与光标状态。
type Input struct {
	Value        string
	CursorLine   int
	CursorColumn int
}

// ActionKind 描述按键触发后的处理类型。
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionClose
	ActionInsert
	ActionSubmit
	ActionError
)

// Action 汇总 Slash 处理结果。
type Action struct {
	Kind         ActionKind
	Command      Command
	NewValue     string
	CursorColumn int
	Args         string
	Message      string
}

// State 维护 slash 弹窗的匹配与选择状态。
type State struct {
	items    []Item
	matches  []match
	selected int
	open     bool
	input    parsedInput
	maxLines int
}

type match struct {
	item       Item
	highlights []int
	score      int
}

type parsedInput struct {
	firstLine string
	rest      string
	token     tokenInfo
	cursor    int
}

type tokenInfo struct {
	found  bool
	active bool
	value  string
	end    int
	args   string
}

// NewState 构造 slash 状态机。
func NewState() *State {
	return &State{
		items:    builtinItems(),
		maxLines: 8,
	}
}

// Open 返回弹窗是否展示。
func (s *State) Open() bool {
	return s != nil && s.open
}

// SyncInput 根据最新文本同步过滤列表与选中项。
func (s *State) SyncInput(in Input) {
	if s == nil {
		return
	}
	s.input = parseInput(in)
	if !s.input.token.found {
		s.open = false
		s.matches = nil
		return
	}
	s.open = s.input.token.active && in.CursorLine == 0
	if !s.open {
		s.matches = nil
		return
	}
	s.matches = filterMatches(s.items, s.input.token.value)
	if s.selected >= len(s.matches) {
		s.selected = 0
	}
}

// ResolveSubmit 按 Enter 行为解析当前输入，不依赖弹窗是否打开。
func (s *State) ResolveSubmit(value string) Action {
	p := parseInput(Input{
		Value:        value,
		CursorColumn: len([]rune(firstLine(value))),
	})
	if !p.token.found || p.token.value == "" {
		return Action{Kind: ActionNone}
	}
	for _, item := range s.items {
		if strings.EqualFold(item.Token(), p.token.value) {
			return Action{Kind: ActionSubmit, Command: item.Command, Args: p.token.args}
		}
	}
	return Action{Kind: ActionError, Message: "unknown command, type / to list"}
}

// HandleKey 处理键盘事件，返回对应动作。
func (s *State) HandleKey(msg string) (Action, bool) {
	if s == nil || !s.open {
		return Action{}, false
	}
	switch msg {
	case "up", "ctrl+p":
		if len(s.matches) == 0 {
			return Action{Kind: ActionClose}, true
		}
		s.selected--
		if s.selected < 0 {
			s.selected = len(s.matches) - 1
		}
		return Action{Kind: ActionNone}, true
	case "down", "ctrl+n":
		if len(s.matches) == 0 {
			return Action{Kind: ActionClose}, true
		}
		s.selected++
		if s.selected >= len(s.matches) {
			s.selected = 0
		}
		return Action{Kind: ActionNone}, true
	case "esc":
		s.open = false
		return Action{Kind: ActionClose}, true
	case "tab":
		if len(s.matches) == 0 {
			return Action{Kind: ActionError, Message: "unknown command, type / to list"}, true
		}
		item := s.matches[s.selected].item
		token := "/" + item.Token()
		return Action{
			Kind:         ActionInsert,
			NewValue:     token + " " + s.input.rest,
			CursorColumn: len([]rune(token)) + 1,
		}, true
	case "enter":
		if len(s.matches) == 0 {
			return Action{Kind: ActionError, Message: "unknown command, type / to list"}, true
		}
		item := s.matches[s.selected].item
		s.open = false
		return Action{Kind: ActionSubmit, Command: item.Command, Args: s.input.token.args}, true
	default:
		return Action{}, false
	}
}

func filterMatches(items []Item, query string) []match {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		matches := make([]match, 0, len(items))
		for _, item := range items {
			matches = append(matches, match{item: item})
		}
		return matches
	}

	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, strings.ToLower(item.Token()))
	}
	results := fuzzy.Find(strings.ToLower(trimmed), keys)
	matches := make([]match, 0, len(results))
	for _, res := range results {
		matches = append(matches, match{
			item:       items[res.Index],
			highlights: res.MatchedIndexes,
			score:      res.Score,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score == matches[j].score {
			return matches[i].item.Token() < matches[j].item.Token()
		}
		return matches[i].score > matches[j].score
	})
	return matches
}

func parseInput(in Input) parsedInput {
	first, rest := splitFirstLine(in.Value)
	runes := []rune(first)
	token := locateToken(runes, in.CursorColumn)
	return parsedInput{
		firstLine: first,
		rest:      rest,
		token:     token,
		cursor:    in.CursorColumn,
	}
}

func splitFirstLine(value string) (string, string) {
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		return value[:idx], value[idx:]
	}
	return value, ""
}

func firstLine(value string) string {
	line, _ := splitFirstLine(value)
	return line
}

func locateToken(runes []rune, cursor int) tokenInfo {
	if len(runes) == 0 || runes[0] != '/' {
		return tokenInfo{}
	}
	token := tokenInfo{found: true, end: len(runes)}
	for i := 1; i < len(runes); i++ {
		if unicode.IsSpace(runes[i]) {
			token.end = i
			break
		}
		if runes[i] == '/' {
			return tokenInfo{}
		}
	}
	token.value = string(runes[1:token.end])
	token.args = strings.TrimLeftFunc(string(runes[token.end:]), unicode.IsSpace)
	token.active = cursor <= token.end
	return token
}

func builtinItems() []Item {
	return []Item{
		{Command: CommandClear, Description: "clear the transcript"},
		{Command: CommandCopy, Description: "copy transcript to clipboard"},
		{Command: CommandStatus, Description: "show agent status"},
		{Command: CommandRestart, Description: "restart the agent process"},
		{Command: CommandQuit, Description: "quit"},
		{Command: CommandExit, Description: "quit"},
	}
}
