package child

import (
	"reflect"
	"testing"
	"time"
)

func TestCommand_AppendsProtocolArgs(t *testing.T) {
	got := Command(Spec{Bin: "claude", Args: []string{"--model", "opus"}})
	want := []string{
		"claude", "--model", "opus",
		"--input-format", "stream-json",
		"--output-format", "stream-json",
		"--verbose",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Command() = %v, want %v", got, want)
	}
}

func TestCommand_NoUserArgs(t *testing.T) {
	got := Command(Spec{Bin: "claude"})
	want := []string{
		"claude",
		"--input-format", "stream-json",
		"--output-format", "stream-json",
		"--verbose",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Command() = %v, want %v", got, want)
	}
}

func TestSetEnv_OverridesExistingKey(t *testing.T) {
	env := []string{"TERM=xterm-256color", "HOME=/root"}
	got := setEnv(env, "TERM", "dumb")
	want := []string{"TERM=dumb", "HOME=/root"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("setEnv = %v, want %v", got, want)
	}
}

func TestSetEnv_AppendsMissingKey(t *testing.T) {
	got := setEnv([]string{"HOME=/root"}, "NO_COLOR", "1")
	want := []string{"HOME=/root", "NO_COLOR=1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("setEnv = %v, want %v", got, want)
	}
}

func TestStart_EmptyBinaryFails(t *testing.T) {
	if _, err := Start(Spec{Bin: "  "}); err == nil {
		t.Fatal("Start with empty binary: want error")
	}
}

func TestClose_ReturnsWhileConsumerStalled(t *testing.T) {
	// cap-1 通道只收第一块，之后投递阻塞，模拟停止排空的消费方。
	stalled := make(chan string, 1)
	p, err := Start(Spec{
		Bin:    "sh",
		Args:   []string{"-c", "while :; do echo spam; done"},
		OnData: func(chunk string) { stalled <- chunk },
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// 等子进程灌满通道
	deadline := time.After(2 * time.Second)
	for len(stalled) == 0 {
		select {
		case <-deadline:
			t.Fatal("no output from child")
		case <-time.After(10 * time.Millisecond):
		}
	}
	time.Sleep(100 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		_ = p.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close blocked on a stalled OnData consumer")
	}
}
