package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestCommandMsgParts(t *testing.T) {
	tests := []struct {
		in       CommandMsg
		wantName string
		wantArgs string
	}{
		{"refresh", "refresh", ""},
		{"add-column  Blocked on review ", "add-column", "Blocked on review"},
		{"rename-column QA", "rename-column", "QA"},
	}
	for _, tt := range tests {
		if got := tt.in.Name(); got != tt.wantName {
			t.Errorf("%q.Name() = %q, want %q", tt.in, got, tt.wantName)
		}
		if got := tt.in.Args(); got != tt.wantArgs {
			t.Errorf("%q.Args() = %q, want %q", tt.in, got, tt.wantArgs)
		}
	}
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New(80, 10)
	for _, r := range "refresh" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if got := cmd(); got != CommandMsg("refresh") {
		t.Errorf("msg = %#v, want refresh", got)
	}

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("empty input should not emit a command")
	}
}
