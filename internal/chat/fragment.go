package chat

import (
	"encoding/json"
	"fmt"
)

// Fragment is one streamed chat completion chunk. Every level is optional:
// a chunk without choices[0].delta.content carries no text.
type Fragment struct {
	Choices []FragmentChoice `json:"choices"`
}

type FragmentChoice struct {
	Delta struct {
		Content *string `json:"content,omitempty"`
	} `json:"delta"`
}

// ParseFragment decodes raw chunk bytes. Only undecodable input is an error.
func ParseFragment(raw []byte) (Fragment, error) {
	var f Fragment
	if err := json.Unmarshal(raw, &f); err != nil {
		return Fragment{}, fmt.Errorf("malformed fragment: %w", err)
	}
	return f, nil
}

// Delta returns the text carried by the first choice, if any
func (f Fragment) Delta() (string, bool) {
	if len(f.Choices) == 0 || f.Choices[0].Delta.Content == nil {
		return "", false
	}
	return *f.Choices[0].Delta.Content, true
}

// NewFragment builds the envelope for a single delta
func NewFragment(content string) Fragment {
	var c FragmentChoice
	c.Delta.Content = &content
	return Fragment{Choices: []FragmentChoice{c}}
}
