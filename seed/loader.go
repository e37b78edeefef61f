package seed

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/* Loader reads delivery templates from a fixtures YAML file
 * Templates keep file order so weighted picks are reproducible
 */

//go:embed fixtures/stripe.yaml
var DefaultFixtures []byte

const defaultStatus = 200

// File represents the structure of a fixtures file
type File struct {
	Templates []TemplateConfig `yaml:"templates"`
}

// TemplateConfig represents a single template in the YAML file
type TemplateConfig struct {
	Name    string                 `yaml:"name"`
	Method  string                 `yaml:"method"`
	Path    string                 `yaml:"path"`
	Status  int                    `yaml:"status"` // Default: 200
	Weight  *int                   `yaml:"weight"` // Default: 1
	Headers map[string]string      `yaml:"headers"`
	Query   map[string]string      `yaml:"query"`
	Body    map[string]interface{} `yaml:"body"`
}

// Loader holds the loaded templates
type Loader struct {
	templates []*Template
	byName    map[string]*Template
}

// NewLoader creates a new fixtures loader
func NewLoader() *Loader {
	return &Loader{
		byName: make(map[string]*Template),
	}
}

// Load reads and parses a fixtures file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading fixtures file: %w", err)
	}
	return l.Parse(data)
}

// LoadDefault parses the embedded Stripe-like fixtures
func (l *Loader) LoadDefault() error {
	return l.Parse(DefaultFixtures)
}

// Parse validates every template in data and adds them to the loader
func (l *Loader) Parse(data []byte) error {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing fixtures YAML: %w", err)
	}
	if len(file.Templates) == 0 {
		return fmt.Errorf("fixtures file has no templates")
	}

	for _, tc := range file.Templates {
		status := tc.Status
		if status == 0 {
			status = defaultStatus
		}
		weight := 1
		if tc.Weight != nil {
			weight = *tc.Weight
		}
		method := tc.Method
		if method == "" {
			method = "POST"
		}

		template := &Template{
			Name:    tc.Name,
			Method:  method,
			Path:    tc.Path,
			Status:  status,
			Weight:  weight,
			Headers: tc.Headers,
			Query:   tc.Query,
			Body:    tc.Body,
		}
		if err := template.Validate(); err != nil {
			return fmt.Errorf("validating template: %w", err)
		}
		if _, exists := l.byName[template.Name]; exists {
			return fmt.Errorf("duplicate template name: %s", template.Name)
		}

		l.templates = append(l.templates, template)
		l.byName[template.Name] = template
	}

	if l.TotalWeight() == 0 {
		return fmt.Errorf("at least one template needs a positive weight")
	}
	return nil
}

// Get retrieves a template by its name
func (l *Loader) Get(name string) (*Template, error) {
	template, exists := l.byName[name]
	if !exists {
		return nil, fmt.Errorf("template not found: %s", name)
	}
	return template, nil
}

// List returns all loaded templates in file order
func (l *Loader) List() []*Template {
	return append([]*Template(nil), l.templates...)
}

func (l *Loader) TotalWeight() int {
	total := 0
	for _, t := range l.templates {
		total += t.Weight
	}
	return total
}
