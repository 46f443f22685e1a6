// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"
)

func TestNewTheme_ExplicitModes(t *testing.T) {
	dark := NewTheme(ModeDark)
	if !dark.IsDark {
		t.Error("NewTheme(dark) should be dark")
	}
	if got := dark.GlamourStyle(); got != "dark" {
		t.Errorf("GlamourStyle() = %q, want dark", got)
	}

	light := NewTheme(ModeLight)
	if light.IsDark {
		t.Error("NewTheme(light) should not be dark")
	}
	if got := light.GlamourStyle(); got != "light" {
		t.Errorf("GlamourStyle() = %q, want light", got)
	}
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewTheme(ModeDark)
	for name, rendered := range map[string]string{
		"HeaderBrand": theme.HeaderBrand.Render("RAGworks"),
		"UserBubble":  theme.UserBubble.Render("hi"),
		"ErrorText":   theme.ErrorText.Render("Error: x"),
		"FormBox":     theme.FormBox.Render("form"),
	} {
		if rendered == "" {
			t.Errorf("%s rendered empty", name)
		}
	}
}

func TestLayoutMode(t *testing.T) {
	theme := NewTheme(ModeDark)
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{80, LayoutMedium},
		{120, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("width %d: GetLayoutMode() = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestRenderStatus_IncludesIndicator(t *testing.T) {
	if !strings.Contains(RenderStatus(true, "done"), StatusIndicators.Success) {
		t.Error("success status should include success indicator")
	}
	if !strings.Contains(RenderStatus(false, "failed"), StatusIndicators.Error) {
		t.Error("error status should include error indicator")
	}
}

func TestSpinnerConfig(t *testing.T) {
	if got := LineSpinner.Duration(); got != 100*time.Millisecond {
		t.Errorf("LineSpinner.Duration() = %v, want 100ms", got)
	}
	if got := (SpinnerConfig{}).Duration(); got != time.Second {
		t.Errorf("zero FPS Duration() = %v, want 1s", got)
	}
	b := DotsSpinner.Bubble()
	if len(b.Frames) != len(DotsSpinner.Frames) {
		t.Errorf("Bubble() frames = %d, want %d", len(b.Frames), len(DotsSpinner.Frames))
	}
}
