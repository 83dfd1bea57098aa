package classify

import (
	"context"
	"testing"

	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

func TestFunc_Adapts(t *testing.T) {
	c := Func(func(ctx context.Context, content string) (*model.Classification, error) {
		return &model.Classification{Type: model.TypeNotes, Score: 0.9}, nil
	})
	cls, err := c.Classify(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if cls.Type != model.TypeNotes {
		t.Errorf("type = %s, want NOTES", cls.Type)
	}
}

func TestNewOpenAIClassifier_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClassifier(ClientConfig{})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestNewOpenAIClassifier_Defaults(t *testing.T) {
	c, err := NewOpenAIClassifier(ClientConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAIClassifier failed: %v", err)
	}
	if c.model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", c.model)
	}
	if c.maxRetries != 3 {
		t.Errorf("maxRetries = %d, want 3", c.maxRetries)
	}
}
