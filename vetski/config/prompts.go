package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type Prompts struct {
	ChatSystem         string `yaml:"chat_system"`
	ConsultationSystem string `yaml:"consultation_system"`
	TranscriptPrefix   string `yaml:"transcript_prefix"`
	SynthesisSystem    string `yaml:"synthesis_system"`
}

// LoadPrompts reads prompts from path, falling back to the embedded defaults
// for an empty path or any key the file leaves blank.
func LoadPrompts(path string) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(defaultPrompts, &p); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	if path == "" {
		return &p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	if override.ChatSystem != "" {
		p.ChatSystem = override.ChatSystem
	}
	if override.ConsultationSystem != "" {
		p.ConsultationSystem = override.ConsultationSystem
	}
	if override.TranscriptPrefix != "" {
		p.TranscriptPrefix = override.TranscriptPrefix
	}
	if override.SynthesisSystem != "" {
		p.SynthesisSystem = override.SynthesisSystem
	}
	return &p, nil
}
