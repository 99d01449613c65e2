package ai

import (
	"errors"
	"strings"
	"testing"
)

func TestParseLabel(t *testing.T) {
	for _, tt := range []struct {
		raw      string
		relevant bool
		class    Classification
	}{
		{"no", false, ClassOther},
		{"No.", false, ClassOther},
		{" NO\n", false, ClassOther},
		{"mcq", true, ClassMCQ},
		{"MCQ", true, ClassMCQ},
		{"coding", true, ClassCoding},
		{"Coding.", true, ClassCoding},
		{"general", true, ClassOther},
		{"Yes", true, ClassOther},
		{"'general'", true, ClassOther},
		{"coding question about APIs", true, ClassCoding},
	} {
		t.Run(tt.raw, func(t *testing.T) {
			relevant, class, err := parseLabel(tt.raw)
			if err != nil {
				t.Fatalf("parseLabel(%q): %v", tt.raw, err)
			}
			if relevant != tt.relevant || class != tt.class {
				t.Errorf("parseLabel(%q) = (%v, %q), want (%v, %q)",
					tt.raw, relevant, class, tt.relevant, tt.class)
			}
		})
	}
}

func TestParseLabelMalformed(t *testing.T) {
	raw := "I cannot determine whether this is a question."
	_, _, err := parseLabel(raw)
	if err == nil {
		t.Fatal("expected error for unparseable label")
	}
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("error type = %T, want *MalformedResponseError", err)
	}
	if !strings.Contains(malformed.Raw, "cannot determine") {
		t.Errorf("Raw should carry the model output, got %q", malformed.Raw)
	}
}

func TestClassifyPromptEmbedsTranscript(t *testing.T) {
	// The prompt quotes the transcript so stray newlines in speech can't
	// break the instruction block.
	got := strings.Count(classifyPrompt, "%q")
	if got != 1 {
		t.Errorf("classifyPrompt has %d %%q verbs, want 1", got)
	}
}
