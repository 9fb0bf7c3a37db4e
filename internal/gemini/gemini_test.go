package gemini

import (
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []genai.Part{genai.Text("第一段"), genai.Text("第二段")},
			},
		}},
	}

	got, err := responseText(resp)
	if err != nil {
		t.Fatalf("responseText: %v", err)
	}
	if got != "第一段第二段" {
		t.Errorf("responseText = %q", got)
	}
}

func TestResponseTextEmptyCandidates(t *testing.T) {
	cases := []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{
			Parts: []genai.Part{genai.Text("   ")},
		}}}},
	}
	for i, resp := range cases {
		if _, err := responseText(resp); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("case %d: err = %v, want ErrEmptyResponse", i, err)
		}
	}
}
