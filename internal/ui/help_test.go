package ui

import (
	"strings"
	"testing"
)

func TestRenderHelpNonEmpty(t *testing.T) {
	got := RenderHelp(DefaultKeyMap(), 80, 40)
	if got == "" {
		t.Error("RenderHelp returned empty string")
	}
}

func TestRenderHelpContainsBindings(t *testing.T) {
	got := RenderHelp(DefaultKeyMap(), 120, 50)
	bindings := []string{"↓/j", "↑/k", "tab", "space", "backspace", "enter", "esc"}
	for _, b := range bindings {
		if !strings.Contains(got, b) {
			t.Errorf("help should contain %q", b)
		}
	}
}

func TestRenderHelpContainsDescriptions(t *testing.T) {
	got := RenderHelp(DefaultKeyMap(), 120, 50)
	descriptions := []string{"mark move", "mark copy", "mark delete", "run marked", "refresh", "quit"}
	for _, d := range descriptions {
		if !strings.Contains(got, d) {
			t.Errorf("help should contain description %q", d)
		}
	}
}

func TestRenderHelpSmallDimensions(t *testing.T) {
	got := RenderHelp(DefaultKeyMap(), 20, 10)
	if got == "" {
		t.Error("RenderHelp should still return content at small dimensions")
	}
}
