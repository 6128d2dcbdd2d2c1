package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestConsoleLevelFiltering(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		logAt       func(*Console)
		wantLogged  bool
		wantContain string
	}{
		{"debug passes at debug", "debug", func(c *Console) { c.Debugf("msg") }, true, "[DEBUG]"},
		{"debug filtered at info", "info", func(c *Console) { c.Debugf("msg") }, false, ""},
		{"info passes at info", "info", func(c *Console) { c.Infof("msg") }, true, "[INFO]"},
		{"warn passes at info", "info", func(c *Console) { c.Warnf("msg") }, true, "[WARN]"},
		{"info filtered at error", "error", func(c *Console) { c.Infof("msg") }, false, ""},
		{"error passes at error", "error", func(c *Console) { c.Errorf("msg") }, true, "[ERROR]"},
		{"unknown level defaults to info", "bogus", func(c *Console) { c.Debugf("msg") }, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := NewConsole(&buf, tt.level)
			tt.logAt(c)

			got := buf.String()
			if tt.wantLogged && !strings.Contains(got, tt.wantContain) {
				t.Errorf("output %q missing %q", got, tt.wantContain)
			}
			if !tt.wantLogged && got != "" {
				t.Errorf("output %q, want empty", got)
			}
		})
	}
}

func TestConsoleFormatsArgs(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "info")
	c.Infof("task %s moved to %s", "abc123", "running")

	if !strings.Contains(buf.String(), "task abc123 moved to running") {
		t.Errorf("output %q missing formatted message", buf.String())
	}
}

func TestConsoleNilWriter(t *testing.T) {
	c := NewConsole(nil, "info")
	// Must not panic.
	c.Infof("discarded")
}

func TestConsoleConcurrent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Infof("concurrent message")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Errorf("got %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "concurrent message") {
			t.Errorf("interleaved line: %q", line)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO", " warn "} {
		if !ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = false, want true", level)
		}
	}
	for _, level := range []string{"", "trace", "verbose"} {
		if ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = true, want false", level)
		}
	}
}
