package seed

import (
	"encoding/json"
	"fmt"
	"strings"
)

/* Template describes one kind of delivery the seeder can fake
 * Body is re-encoded as JSON for every delivery, with a fresh event id
 */
type Template struct {
	Name    string
	Method  string
	Path    string
	Status  int
	Weight  int
	Headers map[string]string
	Query   map[string]string
	Body    map[string]interface{}
}

// Validate checks if the template can produce a capturable request
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !isToken(t.Method) {
		return fmt.Errorf("method %q is not a valid HTTP token for template %s", t.Method, t.Name)
	}
	if !strings.HasPrefix(t.Path, "/") {
		return fmt.Errorf("path must start with / for template %s (got %q)", t.Name, t.Path)
	}
	if t.Status < 100 || t.Status > 599 {
		return fmt.Errorf("status must be between 100 and 599 for template %s (got %d)", t.Name, t.Status)
	}
	if t.Weight < 0 {
		return fmt.Errorf("weight cannot be negative for template %s", t.Name)
	}
	if t.Body != nil {
		if _, err := json.Marshal(t.Body); err != nil {
			return fmt.Errorf("body of template %s cannot be encoded as JSON: %w", t.Name, err)
		}
	}
	return nil
}

// isToken reports whether s is a non-empty RFC 9110 token
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}
