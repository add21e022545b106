// Package prompts holds the embedded instruction text sent to the LLM when
// extracting a profile.
package prompts

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

//go:embed extraction.json
var extractionJSON []byte

// Extraction is the instruction text for one extraction task.
type Extraction struct {
	Description string   `json:"description"`
	Notes       []string `json:"notes"`
}

type extractionFile struct {
	Profile *Extraction `json:"profile"`
}

var loadProfile = sync.OnceValues(func() (Extraction, error) {
	return parseProfile(extractionJSON)
})

// Profile returns the prompt text for profile extraction.
func Profile() (Extraction, error) {
	p, err := loadProfile()
	if err != nil {
		return Extraction{}, err
	}
	p.Notes = append([]string(nil), p.Notes...)
	return p, nil
}

// MustProfile is Profile for callers that build prompts at startup.
func MustProfile() Extraction {
	p, err := Profile()
	if err != nil {
		panic(fmt.Sprintf("load profile prompt: %v", err))
	}
	return p
}

func parseProfile(data []byte) (Extraction, error) {
	var f extractionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Extraction{}, fmt.Errorf("parse extraction prompts: %w", err)
	}
	if f.Profile == nil {
		return Extraction{}, errors.New("extraction prompts: missing profile section")
	}
	if strings.TrimSpace(f.Profile.Description) == "" {
		return Extraction{}, errors.New("extraction prompts: profile description is empty")
	}
	for i, note := range f.Profile.Notes {
		if strings.TrimSpace(note) == "" {
			return Extraction{}, fmt.Errorf("extraction prompts: profile note %d is empty", i)
		}
	}
	return *f.Profile, nil
}
