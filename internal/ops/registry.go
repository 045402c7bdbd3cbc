package ops

import (
	"errors"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Safety classifies how much damage an operation can do.
type Safety string

const (
	// SafetyReportOnly marks operations that never mutate system state.
	SafetyReportOnly Safety = "report-only"
	// SafetyGuarded marks mutating operations whose effects are routine and recoverable.
	SafetyGuarded Safety = "guarded"
	// SafetyDestructive marks operations that change system state in ways
	// that cannot be undone and must never be interrupted or auto-retried.
	SafetyDestructive Safety = "destructive"
)

// ErrNotFound reports an operation id absent from the registry. It is a
// permanent rejection; callers must not retry.
var ErrNotFound = errors.New("operation not in registry")

// Definition describes a single whitelisted operation.
type Definition struct {
	ID          string
	Name        string
	Description string
	Category    string
	// Args are appended to the configured maintenance script invocation.
	Args []string
	// RequiresElevation is true for operations that touch system state
	// outside the console user's home.
	RequiresElevation bool
	Safety            Safety
	// ExpectedDuration bounds how long the operation normally takes.
	// Overruns are logged, never enforced by killing the command.
	ExpectedDuration time.Duration
}

// Registry is an immutable operation lookup table.
type Registry struct {
	byID  map[string]Definition
	order []string
}

// NewRegistry builds a registry from the built-in catalog.
func NewRegistry() *Registry {
	return newRegistry(catalog)
}

func newRegistry(defs []Definition) *Registry {
	byID := make(map[string]Definition, len(defs))
	order := make([]string, 0, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			def.Name = titleCaser.String(strings.ReplaceAll(def.ID, "-", " "))
		}
		byID[def.ID] = def
		order = append(order, def.ID)
	}
	sort.Strings(order)
	return &Registry{byID: byID, order: order}
}

var titleCaser = cases.Title(language.AmericanEnglish)

// Lookup resolves an operation id. It returns ErrNotFound for anything
// absent from the whitelist.
func (r *Registry) Lookup(id string) (Definition, error) {
	def, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return Definition{}, ErrNotFound
	}
	return def, nil
}

// Contains reports whether the id resolves without returning the definition.
func (r *Registry) Contains(id string) bool {
	_, ok := r.byID[strings.TrimSpace(id)]
	return ok
}

// All returns every definition ordered by id.
func (r *Registry) All() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.byID[id])
	}
	return defs
}

// Categories returns the distinct category names in display order.
func (r *Registry) Categories() []string {
	seen := make(map[string]struct{})
	var categories []string
	for _, id := range r.order {
		cat := r.byID[id].Category
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	return categories
}
