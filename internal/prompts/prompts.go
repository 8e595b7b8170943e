package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed default_prompts.yaml
var defaultPrompts []byte

// Generation holds the recipe generation templates.
type Generation struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
	Image  string `yaml:"image"`
}

// Translation holds the translation templates. Taxonomy covers cuisines,
// locations, tags and ingredients.
type Translation struct {
	System     string `yaml:"system"`
	Recipe     string `yaml:"recipe"`
	Collection string `yaml:"collection"`
	Taxonomy   string `yaml:"taxonomy"`
}

// Set is a parsed prompt file.
type Set struct {
	Generation  Generation  `yaml:"generation"`
	Translation Translation `yaml:"translation"`
}

// Default returns the embedded prompt set.
func Default() *Set {
	set, err := parse(defaultPrompts)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts: %v", err))
	}
	return set
}

// Load returns the embedded prompts overlaid with any keys present in the
// YAML file at path. An empty path returns the defaults.
func Load(path string) (*Set, error) {
	set := Default()
	if strings.TrimSpace(path) == "" {
		return set, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	override, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	set.merge(override)
	if err := set.Check(); err != nil {
		return nil, fmt.Errorf("prompts %s: %w", path, err)
	}
	return set, nil
}

func parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *Set) merge(other *Set) {
	overlay(&s.Generation.System, other.Generation.System)
	overlay(&s.Generation.User, other.Generation.User)
	overlay(&s.Generation.Image, other.Generation.Image)
	overlay(&s.Translation.System, other.Translation.System)
	overlay(&s.Translation.Recipe, other.Translation.Recipe)
	overlay(&s.Translation.Collection, other.Translation.Collection)
	overlay(&s.Translation.Taxonomy, other.Translation.Taxonomy)
}

func overlay(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

// Check parses every template so a broken override fails at load time.
func (s *Set) Check() error {
	for name, text := range map[string]string{
		"generation.system":      s.Generation.System,
		"generation.user":        s.Generation.User,
		"generation.image":       s.Generation.Image,
		"translation.system":     s.Translation.System,
		"translation.recipe":     s.Translation.Recipe,
		"translation.collection": s.Translation.Collection,
		"translation.taxonomy":   s.Translation.Taxonomy,
	} {
		if _, err := newTemplate(name, text); err != nil {
			return err
		}
	}
	return nil
}

var funcs = template.FuncMap{
	"join": strings.Join,
}

func newTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return tmpl, nil
}

// Render executes a template text against data and trims the result.
func Render(name, text string, data any) (string, error) {
	tmpl, err := newTemplate(name, text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
