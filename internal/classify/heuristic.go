package classify

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/juneyoungl/jot/internal/model"
)

// Heuristic is a keyword-based classifier used when no API key is
// configured. Its scores stay at or below the medium band so nothing it
// produces auto-accepts, and anything it cannot place parks for manual
// review.
type Heuristic struct{}

// NewHeuristic creates the fallback classifier.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

var (
	urlPattern  = regexp.MustCompile(`https?://\S+`)
	timePattern = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s*(am|pm)\b|\b\d{1,2}:\d{2}\b`)
)

var scheduleWords = []string{
	"meeting", "meet ", "appointment", "lunch with", "dinner with",
	"tomorrow at", "today at", "tonight at",
}

var todoWords = []string{
	"todo", "to-do", "buy ", "call ", "email ", "pay ", "send ",
	"fix ", "finish ", "remind me", "don't forget", "pick up",
}

// Classify implements Classifier.
func (h *Heuristic) Classify(ctx context.Context, content string) (*model.Classification, error) {
	lower := strings.ToLower(content)

	if urlPattern.MatchString(content) {
		sub := model.SubTypeBookmark
		return &model.Classification{
			Type:    model.TypeNotes,
			SubType: &sub,
			Score:   0.9,
		}, nil
	}

	if containsAny(lower, scheduleWords) && timePattern.MatchString(content) {
		start := time.Now().Truncate(time.Hour).Add(time.Hour)
		return &model.Classification{
			Type:  model.TypeSchedule,
			Score: 0.82,
			ScheduleInfo: &model.ScheduleInfo{
				StartTime: start.UnixMilli(),
				EndTime:   start.Add(time.Hour).UnixMilli(),
			},
		}, nil
	}

	if containsAny(lower, todoWords) {
		return &model.Classification{
			Type:     model.TypeTodo,
			Score:    0.85,
			TodoInfo: &model.TodoInfo{Priority: model.PriorityNone},
		}, nil
	}

	// Nothing matched; low score routes this to manual review.
	return &model.Classification{Type: model.TypeNotes, Score: 0.5}, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
