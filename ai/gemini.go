package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiModel = "gemini-flash-lite-latest"

const classifyPrompt = `Is the following text a programming-related question, backend development question, or a technical interview question?
This includes questions about APIs, databases, server architecture, microservices, DevOps, system design, or any programming concepts.
Answer with only a single word:
'no' if it is not such a question,
'mcq' if it is a multiple-choice question,
'coding' if it asks for code to be written,
'general' for any other technical question.

Text: %q`

const answerPrompt = `Please provide a clear and concise answer to the following question: %s

For simple questions or definitions, provide a one-line answer.
For complex questions, provide a detailed explanation.

If your answer includes code examples, please provide them in Python programming language only.
Format any code using triple backticks with 'python' as the language identifier like this:
` + "```python\n# your python code here\n```" + `

For backend development questions (APIs, databases, system design, etc.), provide practical answers.
Do not give unnecessary explanations - be direct and to the point.`

const imagePrompt = `The attached screenshot contains a technical question, likely from a programming interview or quiz.
Read the question from the image and answer it.
If it is a multiple-choice question, state the correct option first, then a one-line justification.
If it asks for code, answer in Python inside a triple-backtick python block.
Be direct and to the point.`

type Gemini struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

func (g *Gemini) AnswerText(ctx context.Context, transcript string) (Answer, error) {
	resp, err := g.client.Models.GenerateContent(ctx, geminiModel,
		genai.Text(fmt.Sprintf(classifyPrompt, transcript)), nil)
	if err != nil {
		return Answer{}, fmt.Errorf("gemini classify: %w", err)
	}

	relevant, class, err := parseLabel(resp.Text())
	if err != nil {
		return Answer{}, err
	}
	if !relevant {
		return Answer{Relevant: false, Classification: class}, nil
	}

	resp, err = g.client.Models.GenerateContent(ctx, geminiModel,
		genai.Text(fmt.Sprintf(answerPrompt, transcript)), nil)
	if err != nil {
		return Answer{}, fmt.Errorf("gemini answer: %w", err)
	}
	body := strings.TrimSpace(resp.Text())
	if body == "" {
		return Answer{}, &MalformedResponseError{Raw: resp.Text()}
	}

	return Answer{Relevant: true, Classification: class, Body: body}, nil
}

func (g *Gemini) AnswerImage(ctx context.Context, name string, png []byte) (Answer, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(png, "image/png"),
		genai.NewPartFromText(imagePrompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return Answer{}, fmt.Errorf("gemini image %s: %w", name, err)
	}
	body := strings.TrimSpace(resp.Text())
	if body == "" {
		return Answer{}, &MalformedResponseError{Raw: resp.Text()}
	}

	// Screenshots reach the bucket deliberately, so they are always treated
	// as relevant; only the kind needs guessing and MCQ screenshots are the
	// common case.
	return Answer{Relevant: true, Classification: ClassMCQ, Body: body}, nil
}

// parseLabel maps the one-word classification reply onto the Answer enum.
func parseLabel(raw string) (bool, Classification, error) {
	word := strings.ToLower(strings.TrimSpace(raw))
	word = strings.Trim(word, ".'\"`*")
	if i := strings.IndexAny(word, " \t\n"); i >= 0 {
		word = word[:i]
	}

	switch word {
	case "no", "none":
		return false, ClassOther, nil
	case "mcq", "multiple-choice":
		return true, ClassMCQ, nil
	case "coding", "code":
		return true, ClassCoding, nil
	case "general", "yes", "other":
		return true, ClassOther, nil
	default:
		return false, ClassOther, &MalformedResponseError{Raw: raw}
	}
}
