package editor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNoteProducerAppends(t *testing.T) {
	dir := t.TempDir()
	original := "# My Project\n"
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(original), 0644); err != nil {
		t.Fatalf("failed to seed README: %v", err)
	}

	files, err := NoteProducer{}.Produce(context.Background(), "add docs", dir)
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if len(files) != 1 || files[0] != "README.md" {
		t.Errorf("files = %v, want [README.md]", files)
	}

	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		t.Fatalf("failed to read README: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, original) {
		t.Error("original README content was not preserved")
	}
	if !strings.Contains(content, "# Agent Change: add docs") {
		t.Errorf("README missing agent note: %q", content)
	}
}

func TestNoteProducerCreatesMissingReadme(t *testing.T) {
	dir := t.TempDir()

	if _, err := (NoteProducer{}).Produce(context.Background(), "add docs", dir); err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "README.md")); err != nil {
		t.Errorf("README.md was not created: %v", err)
	}
}

func TestCommandProducerRequiresCommand(t *testing.T) {
	p := &CommandProducer{}
	if _, err := p.Produce(context.Background(), "prompt", t.TempDir()); err == nil {
		t.Error("Produce without command = nil, want error")
	}
}

func TestCommandProducerFailingCommand(t *testing.T) {
	p := &CommandProducer{Command: "false"}
	if _, err := p.Produce(context.Background(), "prompt", t.TempDir()); err == nil {
		t.Error("Produce with failing command = nil, want error")
	}
}

func TestParsePorcelain(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{"empty", "", nil},
		{"modified", " M README.md\n", []string{"README.md"}},
		{"added and untracked", "A  main.go\n?? notes.txt\n", []string{"main.go", "notes.txt"}},
		{"rename keeps new path", "R  old.go -> new.go\n", []string{"new.go"}},
		{"mixed", " M a.go\nR  b.go -> c.go\n", []string{"a.go", "c.go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePorcelain(tt.output)
			if len(got) != len(tt.want) {
				t.Fatalf("parsePorcelain = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("file %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
