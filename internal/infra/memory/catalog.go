package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"assessment-session-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Catalog is a static assessment store backed by a map (useful for tests, demos and seeding).
type Catalog struct {
	mu          sync.RWMutex
	assessments map[string]domain.StoredAssessment
}

type catalogFile struct {
	Assessments []domain.StoredAssessment `yaml:"assessments"`
}

func NewCatalog(assessments ...domain.StoredAssessment) *Catalog {
	c := &Catalog{assessments: make(map[string]domain.StoredAssessment, len(assessments))}
	for _, a := range assessments {
		c.assessments[a.Definition.ID] = a
	}
	return c
}

// LoadCatalogFile reads a YAML catalog of the form `assessments: [{definition, answerKey}]`.
func LoadCatalogFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, a := range file.Assessments {
		if err := a.Definition.Validate(); err != nil {
			return nil, fmt.Errorf("catalog assessment %q: %w", a.Definition.ID, err)
		}
	}
	return NewCatalog(file.Assessments...), nil
}

// LoadAssessment returns the definition without its answer key.
func (c *Catalog) LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	stored, err := c.LoadStored(ctx, assessmentID)
	if err != nil {
		return domain.AssessmentDefinition{}, err
	}
	return stored.Definition, nil
}

// LoadStored returns the definition together with its answer key.
func (c *Catalog) LoadStored(_ context.Context, assessmentID string) (domain.StoredAssessment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if a, ok := c.assessments[assessmentID]; ok {
		return a, nil
	}
	return domain.StoredAssessment{}, domain.ErrAssessmentNotFound
}

// All returns every stored assessment.
func (c *Catalog) All() []domain.StoredAssessment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.StoredAssessment, 0, len(c.assessments))
	for _, a := range c.assessments {
		out = append(out, a)
	}
	return out
}
