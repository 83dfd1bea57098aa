package classify

import (
	"context"
	"testing"

	"github.com/juneyoungl/jot/internal/model"
)

func TestHeuristicClassify(t *testing.T) {
	h := NewHeuristic()
	ctx := context.Background()

	tests := []struct {
		name      string
		content   string
		wantType  model.CaptureType
		wantLevel model.ConfidenceLevel
	}{
		{"url becomes bookmark", "read later https://example.com/post", model.TypeNotes, model.ConfidenceMedium},
		{"meeting with time", "meeting with Dana tomorrow at 3pm", model.TypeSchedule, model.ConfidenceMedium},
		{"todo verb", "buy milk on the way home", model.TypeTodo, model.ConfidenceMedium},
		{"plain text parks", "some thoughts about the garden", model.TypeNotes, model.ConfidenceLow},
		{"meeting without time parks", "meeting notes from standup", model.TypeNotes, model.ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := h.Classify(ctx, tt.content)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if cls.Type != tt.wantType {
				t.Errorf("type = %s, want %s", cls.Type, tt.wantType)
			}
			if cls.Level() != tt.wantLevel {
				t.Errorf("level = %s, want %s", cls.Level(), tt.wantLevel)
			}
		})
	}
}

func TestHeuristicScheduleHasTimes(t *testing.T) {
	h := NewHeuristic()
	cls, err := h.Classify(context.Background(), "lunch with Sam today at 12:30")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if cls.ScheduleInfo == nil {
		t.Fatal("schedule classification without schedule info")
	}
	if cls.ScheduleInfo.EndTime <= cls.ScheduleInfo.StartTime {
		t.Errorf("end %d not after start %d", cls.ScheduleInfo.EndTime, cls.ScheduleInfo.StartTime)
	}
}

func TestHeuristicNeverAutoAccepts(t *testing.T) {
	h := NewHeuristic()
	for _, content := range []string{
		"https://example.com",
		"meeting tomorrow at 9am",
		"call the plumber",
		"anything else",
	} {
		cls, err := h.Classify(context.Background(), content)
		if err != nil {
			t.Fatalf("Classify(%q) failed: %v", content, err)
		}
		if cls.Level() == model.ConfidenceHigh {
			t.Errorf("Classify(%q) scored HIGH; fallback results must require confirmation", content)
		}
	}
}
