package ui

import (
	"strings"
	"testing"

	"github.com/lumenworks/shuttle/engine"
)

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		bytesPerSec float64
		expected    string
	}{
		{500, "500 B/s"},
		{1024, "1.00 KB/s"},
		{2048, "2.00 KB/s"},
		{1048576, "1.00 MB/s"},
		{1572864, "1.50 MB/s"},
		{1073741824, "1.00 GB/s"},
	}

	for _, tt := range tests {
		result := formatSpeed(tt.bytesPerSec)
		if result != tt.expected {
			t.Errorf("formatSpeed(%v) = %v; want %v", tt.bytesPerSec, result, tt.expected)
		}
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "--"},
		{-1, "--"},
		{5, "5s"},
		{90, "1m30s"},
		{100000, "> 1d"},
	}

	for _, tt := range tests {
		result := formatETA(tt.seconds)
		if result != tt.expected {
			t.Errorf("formatETA(%v) = %v; want %v", tt.seconds, result, tt.expected)
		}
	}
}

func TestModel_RendersSamples(t *testing.T) {
	model := NewModel()

	updated, _ := model.Update(SampleMsg(engine.Sample{
		JobID:      "abcdef1234567890",
		FileName:   "reel_01.mov",
		FilesDone:  2,
		FilesTotal: 5,
		BytesDone:  500,
		BytesTotal: 1000,
		Speed:      1024,
		ETASeconds: 5,
	}))
	model = updated.(Model)

	view := model.View()
	if !strings.Contains(view, "abcdef12") {
		t.Errorf("expected short job id in view")
	}
	if !strings.Contains(view, "2/5 files") {
		t.Errorf("expected file counters in view, got:\n%s", view)
	}
	if !strings.Contains(view, "reel_01.mov") {
		t.Errorf("expected current file name in view")
	}
	if !strings.Contains(view, "1.00 KB/s") {
		t.Errorf("expected speed in view")
	}
}

func TestModel_RendersSkipsAndErrors(t *testing.T) {
	model := NewModel()

	updated, _ := model.Update(SampleMsg(engine.Sample{
		JobID:        "job-1",
		FilesDone:    1,
		FilesSkipped: 2,
		FilesTotal:   4,
	}))
	model = updated.(Model)

	updated, _ = model.Update(ErrorMsg{JobID: "job-1", Msg: "skipped broken.txt"})
	model = updated.(Model)

	view := model.View()
	if !strings.Contains(view, "2 skipped") {
		t.Errorf("expected skip count in view, got:\n%s", view)
	}
	if !strings.Contains(view, "skipped broken.txt") {
		t.Errorf("expected error line in view")
	}
}

func TestModel_DoneView(t *testing.T) {
	model := NewModel()

	updated, _ := model.Update(DoneMsg{})
	model = updated.(Model)

	view := model.View()
	if !strings.Contains(view, "finished") {
		t.Errorf("expected finished banner, got:\n%s", view)
	}
}
