// Package labels holds the label taxonomy used to map raw tracker labels onto
// named categories.
package labels

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/k2brd/k2brd/pkg/logger"
)

// Category is one named group of permissible label values.
type Category struct {
	Name   string   `yaml:"name"   json:"name"   validate:"required,max=250"`
	Values []string `yaml:"values" json:"values" validate:"max=4,dive,required"`
}

// Taxonomy is the process-wide label configuration. It is read-only once loaded.
type Taxonomy struct {
	Categories map[string]Category `yaml:"categories" json:"categories" validate:"required,max=3,dive"`
}

// Default returns the built-in taxonomy used when no file is configured.
func Default() *Taxonomy {
	return &Taxonomy{
		Categories: map[string]Category{
			"type": {
				Name:   "Type",
				Values: []string{"Enhancement", "Bug", "Feature", "Task"},
			},
			"priority": {
				Name:   "Priority",
				Values: []string{"Critical", "High", "Medium", "Low"},
			},
			"status": {
				Name:   "Status",
				Values: []string{"In Progress", "Blocked", "Ready", "Done"},
			},
		},
	}
}

// Load reads a JSON or YAML taxonomy file. An empty path or a missing file
// yields the default taxonomy.
func Load(ctx context.Context, path string) (*Taxonomy, error) {
	log := logger.FromContext(ctx)
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("Label config not found, using default taxonomy", "path", path)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read label config: %w", err)
	}
	var tax Taxonomy
	if err := yaml.Unmarshal(data, &tax); err != nil {
		return nil, fmt.Errorf("failed to parse label config %s: %w", path, err)
	}
	if err := tax.Validate(); err != nil {
		return nil, fmt.Errorf("invalid label config %s: %w", path, err)
	}
	log.Info("Loaded label taxonomy", "path", path, "categories", len(tax.Categories))
	return &tax, nil
}

// Validate enforces the category and value limits.
func (t *Taxonomy) Validate() error {
	return validator.New().Struct(t)
}

// Keys returns the category identifiers in sorted order.
func (t *Taxonomy) Keys() []string {
	keys := make([]string, 0, len(t.Categories))
	for k := range t.Categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map assigns raw labels to categories. A label matches a category when it
// equals one of its values, or has the form "<category name>: <value>".
// Matching ignores case; the canonical value is returned. Later labels win.
func (t *Taxonomy) Map(labels []string) map[string]string {
	out := make(map[string]string)
	keys := t.Keys()
	for _, label := range labels {
		for _, key := range keys {
			if value, ok := t.Categories[key].match(label); ok {
				out[key] = value
				break
			}
		}
	}
	return out
}

func (c Category) match(label string) (string, bool) {
	candidate := strings.TrimSpace(label)
	if name, rest, found := strings.Cut(candidate, ":"); found {
		if !strings.EqualFold(strings.TrimSpace(name), c.Name) {
			return "", false
		}
		candidate = strings.TrimSpace(rest)
	}
	for _, v := range c.Values {
		if strings.EqualFold(v, candidate) {
			return v, true
		}
	}
	return "", false
}
