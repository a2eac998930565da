package stream

import "strings"

// Reassembler 将任意切分的流式文本还原为完整的行记录。
// pending 中最多保留一条未终止的记录（不含换行）。
type Reassembler struct {
	pending string
}

// Feed appends chunk to the pending buffer and returns every newline-terminated
// record observed so far, in arrival order. The trailing segment stays buffered
// until its newline arrives; blank lines carry no information and are dropped.
// Feeding the same text in any chunking produces the same record sequence.
func (r *Reassembler) Feed(chunk string) []string {
	r.pending += chunk
	if !strings.Contains(r.pending, "\n") {
		return nil
	}
	segments := strings.Split(r.pending, "\n")
	r.pending = segments[len(segments)-1]
	records := make([]string, 0, len(segments)-1)
	for _, seg := range segments[:len(segments)-1] {
		seg = strings.TrimSuffix(seg, "\r") // pty 输出使用 CRLF
		if strings.TrimSpace(seg) == "" {
			continue
		}
		records = append(records, seg)
	}
	return records
}

// Pending returns the unterminated trailing record, if any.
func (r *Reassembler) Pending() string {
	return r.pending
}

// Reset discards any buffered partial record. Used on session teardown; no
// partial-record state survives it.
func (r *Reassembler) Reset() {
	r.pending = ""
}
