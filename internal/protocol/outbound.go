package protocol

import "encoding/json"

// ContentBlock is one entry of an outbound message's content array.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// userMessage 是写入子进程 stdin 的唯一出站格式，一行一个对象。
type userMessage struct {
	Type    string `json:"type"`
	Message struct {
		Role    string         `json:"role"`
		Content []ContentBlock `json:"content"`
	} `json:"message"`
}

// EncodeUserMessage builds the outbound user record for text, terminated with
// a single newline.
func EncodeUserMessage(text string) ([]byte, error) {
	msg := userMessage{Type: "user"}
	msg.Message.Role = "user"
	msg.Message.Content = []ContentBlock{{Type: "text", Text: text}}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
