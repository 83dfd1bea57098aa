// Package classify produces Classification results for raw capture
// content. The engine consumes the Classifier interface; the OpenAI
// implementation is the production classifier and tests substitute
// fakes.
package classify

import (
	"context"

	"github.com/juneyoungl/jot/internal/model"
)

// Classifier turns capture content into a classification result.
type Classifier interface {
	Classify(ctx context.Context, content string) (*model.Classification, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, content string) (*model.Classification, error)

// Classify implements Classifier.
func (f Func) Classify(ctx context.Context, content string) (*model.Classification, error) {
	return f(ctx, content)
}
