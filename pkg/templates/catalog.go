// Package templates loads the service templates applications are instantiated from.
package templates

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/appflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrTemplateNotFound  = errors.New("service template not found")
	ErrInvalidTemplate   = errors.New("invalid service template")
	ErrDuplicateTemplate = errors.New("duplicate service template code")
)

//go:embed schema.json
var schemaJSON []byte

//go:embed builtin/*.json
var builtin embed.FS

// Catalog is a read-only set of service templates keyed by code.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]*models.ServiceTemplate
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{templates: map[string]*models.ServiceTemplate{}}
}

// Builtin returns the catalog of templates shipped with the binary.
func Builtin() (*Catalog, error) {
	catalog := NewCatalog()

	if err := catalog.LoadFS(builtin, "builtin"); err != nil {
		return nil, err
	}

	return catalog, nil
}

// LoadDir loads every *.json file of dir. An empty dir loads the built-in templates.
func LoadDir(dir string) (*Catalog, error) {
	if dir == "" {
		return Builtin()
	}

	catalog := NewCatalog()

	if err := catalog.LoadFS(os.DirFS(dir), "."); err != nil {
		return nil, err
	}

	return catalog, nil
}

// LoadFS adds the templates found in dir of fsys to the catalog.
func (c *Catalog) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}

		template, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}

		if err := c.Add(template); err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
	}

	return nil
}

// Add registers template. Codes are unique.
func (c *Catalog) Add(template *models.ServiceTemplate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.templates[template.Code]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTemplate, template.Code)
	}

	c.templates[template.Code] = template

	return nil
}

// Lookup returns the template with the given code.
func (c *Catalog) Lookup(code string) (*models.ServiceTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	template, ok := c.templates[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, code)
	}

	return template, nil
}

// Codes lists the template codes in lexical order.
func (c *Catalog) Codes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	codes := make([]string, 0, len(c.templates))
	for code := range c.templates {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	return codes
}

// Parse decodes a template, checking it against the JSON schema and then
// against the struct rules of models.ServiceTemplate.
func Parse(data []byte) (*models.ServiceTemplate, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidTemplate, strings.Join(problems, "; "))
	}

	var template models.ServiceTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	if err := validate.Struct(template); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTemplate, validationErrors.Error())
		}

		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	for i := range template.Documents {
		for j, format := range template.Documents[i].AcceptedFormats {
			template.Documents[i].AcceptedFormats[j] = models.NormalizeFormat(format)
		}
	}

	return &template, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())
