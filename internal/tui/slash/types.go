package slash

import "strings"

// Command 表示内置斜杠命令的标识符。
type Command string

const (
	CommandQuit    Command = "quit"
	CommandExit    Command = "exit"
	CommandClear   Command = "clear"
	CommandCopy    Command = "copy"
	CommandStatus  Command = "status"
	CommandRestart Command = "restart"
)

// Item 代表弹窗中的一行条目。
type Item struct {
	Command     Command
	Description string
}

// Token 返回无前导斜杠的匹配键。
func (i Item) Token() string {
	return string(i.Command)
}

// DisplayName 返回带前缀斜杠的展示名称。
func (i Item) DisplayName() string {
	token := i.Token()
	if token == "" {
		return ""
	}
	if strings.HasPrefix(token, "/") {
		return token
	}
	return "/" + token
}
