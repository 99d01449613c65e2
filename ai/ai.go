// Package ai classifies captured questions and produces answers through a
// generative model. One blocking call in, one Answer out.
package ai

import (
	"context"
	"fmt"
)

type Classification string

const (
	ClassMCQ    Classification = "mcq"
	ClassCoding Classification = "coding"
	ClassOther  Classification = "other"
)

// Answer is the model's verdict on one question. Relevant is false both for
// off-topic questions and for error answers produced at the dispatcher
// boundary.
type Answer struct {
	Relevant       bool
	Classification Classification
	Body           string
}

type Answerer interface {
	AnswerText(ctx context.Context, transcript string) (Answer, error)
	AnswerImage(ctx context.Context, name string, png []byte) (Answer, error)
}

// MalformedResponseError reports model output that could not be mapped to a
// classification. Raw carries the content for operator inspection.
type MalformedResponseError struct {
	Raw string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("unparseable model response: %q", e.Raw)
}
