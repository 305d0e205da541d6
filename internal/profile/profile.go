// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile loads the portfolio owner's structured profile and turns
// it into the instruction string sent with every upstream request.
//
// The gateway only ever sees a Source, which produces one string; nothing
// else depends on the profile's shape.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// PROFILE TYPES
// =============================================================================

// Profile is the structured description of the portfolio owner.
type Profile struct {
	Name        string `json:"name" yaml:"name" toml:"name" validate:"required"`
	Title       string `json:"title" yaml:"title" toml:"title"`
	Tagline     string `json:"tagline" yaml:"tagline" toml:"tagline"`
	Bio         string `json:"bio" yaml:"bio" toml:"bio"`
	Location    string `json:"location" yaml:"location" toml:"location"`
	Personality string `json:"personality" yaml:"personality" toml:"personality"`

	Skills     []SkillGroup `json:"skills" yaml:"skills" toml:"skills" validate:"dive"`
	Projects   []Project    `json:"projects" yaml:"projects" toml:"projects" validate:"dive"`
	Experience []Position   `json:"experience" yaml:"experience" toml:"experience" validate:"dive"`
	Awards     []string     `json:"awards" yaml:"awards" toml:"awards"`
	Contact    Contact      `json:"contact" yaml:"contact" toml:"contact"`

	// Card is markdown shown when a reply contains the card marker.
	Card string `json:"card" yaml:"card" toml:"card"`
}

// SkillGroup is a named list of skills.
type SkillGroup struct {
	Category string   `json:"category" yaml:"category" toml:"category" validate:"required"`
	Items    []string `json:"items" yaml:"items" toml:"items"`
}

// Project is one portfolio project.
type Project struct {
	Title       string   `json:"title" yaml:"title" toml:"title" validate:"required"`
	Description string   `json:"description" yaml:"description" toml:"description"`
	Tech        []string `json:"tech" yaml:"tech" toml:"tech"`
	Repo        string   `json:"repo" yaml:"repo" toml:"repo" validate:"omitempty,url"`
	Demo        string   `json:"demo" yaml:"demo" toml:"demo" validate:"omitempty,url"`
}

// Position is one entry of work experience.
type Position struct {
	Company     string `json:"company" yaml:"company" toml:"company" validate:"required"`
	Role        string `json:"role" yaml:"role" toml:"role" validate:"required"`
	Period      string `json:"period" yaml:"period" toml:"period"`
	Description string `json:"description" yaml:"description" toml:"description"`
}

// Contact holds public contact details.
type Contact struct {
	Email    string `json:"email" yaml:"email" toml:"email" validate:"omitempty,email"`
	GitHub   string `json:"github" yaml:"github" toml:"github"`
	LinkedIn string `json:"linkedin" yaml:"linkedin" toml:"linkedin"`
	Website  string `json:"website" yaml:"website" toml:"website" validate:"omitempty,url"`
}

// =============================================================================
// LOADING
// =============================================================================

// ErrUnsupportedFormat is returned for profile files that are not JSON,
// YAML or TOML.
var ErrUnsupportedFormat = errors.New("unsupported profile format")

var validate = validator.New()

// Load reads a profile from path. The format is chosen by extension.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes and validates profile data. ext is a file extension such
// as ".yaml"; the leading dot is optional.
func Parse(data []byte, ext string) (*Profile, error) {
	var p Profile
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "json":
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode JSON profile: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode YAML profile: %w", err)
		}
	case "toml":
		if _, err := toml.Decode(string(data), &p); err != nil {
			return nil, fmt.Errorf("failed to decode TOML profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &p, nil
}

// Default returns the built-in profile used when no file is configured.
func Default() *Profile {
	return &Profile{
		Name:     "Jack Smith",
		Title:    "Software Engineer",
		Tagline:  "someone who enjoys building things at the edge of AI and the web",
		Bio:      "I build web applications, developer tools and the occasional game. Most of my recent work mixes language models with interactive front ends.",
		Location: "Toronto, Canada",
		Skills: []SkillGroup{
			{Category: "Languages", Items: []string{"Go", "TypeScript", "Python", "C++"}},
			{Category: "Web", Items: []string{"React", "Next.js", "Node.js"}},
			{Category: "AI", Items: []string{"LLM integration", "prompt design", "retrieval"}},
		},
		Projects: []Project{
			{
				Title:       "Portfolio Assistant",
				Description: "A streaming chat assistant that answers questions about my work.",
				Tech:        []string{"Go", "Server-sent events", "Groq"},
			},
		},
		Contact: Contact{
			GitHub: "github.com/jedsmith2004",
		},
		Card: "## Jack Smith\n\n**Software Engineer** · Toronto\n\n- Go, TypeScript, Python\n- LLM-backed web applications\n\nFull resume available on request.",
	}
}
