package run

import (
	"fmt"
	"strings"

	"github.com/klanavo/klanavo/pkg/search"
)

// Default search corridor settings in kilometres.
const (
	DefaultRadiusKm = 10
	DefaultStepKm   = 10
)

// Params are the user inputs of a run.
type Params struct {
	Start    string `json:"start" yaml:"start"`
	End      string `json:"end" yaml:"end"`
	Query    string `json:"query" yaml:"query"`
	RadiusKm int    `json:"radiusKm,omitempty" yaml:"radiusKm,omitempty"`
	StepKm   int    `json:"stepKm,omitempty" yaml:"stepKm,omitempty"`
	MinPrice *int   `json:"minPrice,omitempty" yaml:"minPrice,omitempty"`
	MaxPrice *int   `json:"maxPrice,omitempty" yaml:"maxPrice,omitempty"`
	Category *int   `json:"category,omitempty" yaml:"category,omitempty"`
}

// ValidationError reports missing or malformed run inputs. No run starts
// when validation fails.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("run: invalid %s: %s", e.Field, e.Message)
}

// Validate checks the inputs. The search term is checked first, then the
// route endpoints.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Query) == "" {
		return &ValidationError{Field: "query", Message: "search term is required"}
	}
	if strings.TrimSpace(p.Start) == "" {
		return &ValidationError{Field: "start", Message: "start address is required"}
	}
	if strings.TrimSpace(p.End) == "" {
		return &ValidationError{Field: "end", Message: "destination address is required"}
	}
	if p.RadiusKm < 0 || p.StepKm < 0 {
		return &ValidationError{Field: "radius", Message: "radius and step must not be negative"}
	}
	if p.MinPrice != nil && p.MaxPrice != nil && *p.MinPrice > *p.MaxPrice {
		return &ValidationError{Field: "price", Message: "minimum price exceeds maximum price"}
	}
	return nil
}

func (p Params) request() search.Request {
	radius, step := p.RadiusKm, p.StepKm
	if radius == 0 {
		radius = DefaultRadiusKm
	}
	if step == 0 {
		step = DefaultStepKm
	}
	return search.Request{
		Start:    strings.TrimSpace(p.Start),
		End:      strings.TrimSpace(p.End),
		Query:    strings.TrimSpace(p.Query),
		RadiusKm: radius,
		StepKm:   step,
		MinPrice: p.MinPrice,
		MaxPrice: p.MaxPrice,
		Category: p.Category,
	}
}
