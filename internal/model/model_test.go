package model

import "testing"

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  ConfidenceLevel
	}{
		{0.97, ConfidenceHigh},
		{0.95, ConfidenceHigh}, // boundary inclusive on higher tier
		{0.9499, ConfidenceMedium},
		{0.84, ConfidenceMedium},
		{0.80, ConfidenceMedium}, // boundary inclusive on higher tier
		{0.7999, ConfidenceLow},
		{0.50, ConfidenceLow},
		{0.0, ConfidenceLow},
		{1.0, ConfidenceHigh},
	}

	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestCaptureTypeValid(t *testing.T) {
	for _, typ := range []CaptureType{TypeSchedule, TypeTodo, TypeNotes, TypeTemp} {
		if !typ.Valid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if CaptureType("MEMO").Valid() {
		t.Error("unknown type should not be valid")
	}
}

func TestNoteSubTypeValid(t *testing.T) {
	for _, st := range []NoteSubType{SubTypeInbox, SubTypeIdea, SubTypeBookmark, SubTypeUserFolder} {
		if !st.Valid() {
			t.Errorf("%s should be valid", st)
		}
	}
	if NoteSubType("ARCHIVE").Valid() {
		t.Error("unknown subtype should not be valid")
	}
}
