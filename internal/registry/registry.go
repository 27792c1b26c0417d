// Package registry holds the catalog of declarative hypotheses: falsifiable
// claims about the view-sync system, each pairing a causal statement with a
// measurable prediction and an executable check.
package registry

import (
	"context"
	"errors"
	"fmt"

	"viewsync/domain/hypothesis"
	"viewsync/internal"
	"viewsync/internal/schedule"
	"viewsync/internal/viewsync"
	"viewsync/ports"
)

// ErrDuplicateID rejects registering two hypotheses under one id. The catalog
// is built from several category tables; a duplicate id is a programming
// error, not a silent override.
var ErrDuplicateID = errors.New("duplicate hypothesis id")

// Capability names a collaborator a hypothesis needs. Absent capabilities
// produce a uniform skipped outcome instead of per-test presence checks.
type Capability string

const (
	CapClockControl Capability = "clockControl"
	CapSelection    Capability = "selection"
	CapBaseView     Capability = "baseView"
	CapOverlay      Capability = "overlay"
	CapScheduler    Capability = "scheduler"
	CapMonitor      Capability = "monitor"
)

// TestContext carries explicit handles to every collaborator a hypothesis may
// touch. A nil handle means the collaborator is absent in this deployment.
type TestContext struct {
	Clock     ports.ClockControl
	Selection ports.SelectionStore
	BaseView  ports.ViewSurface
	Overlay   ports.ViewSurface
	Scheduler *schedule.UpdateScheduler
	Monitor   *viewsync.Monitor
	Log       *internal.Logger
}

// Has reports whether the named collaborator is available.
func (tc *TestContext) Has(c Capability) bool {
	switch c {
	case CapClockControl:
		return tc.Clock != nil
	case CapSelection:
		return tc.Selection != nil
	case CapBaseView:
		return tc.BaseView != nil
	case CapOverlay:
		return tc.Overlay != nil
	case CapScheduler:
		return tc.Scheduler != nil
	case CapMonitor:
		return tc.Monitor != nil
	}
	return false
}

// MissingCapability returns the first required capability that is absent.
func (tc *TestContext) MissingCapability(required []Capability) (Capability, bool) {
	for _, c := range required {
		if !tc.Has(c) {
			return c, true
		}
	}
	return "", false
}

// TestFunc executes a hypothesis check. It must restore any collaborator
// state it mutated before returning.
type TestFunc func(ctx context.Context, tc *TestContext) hypothesis.Outcome

// Hypothesis is an immutable catalog entry: a causal claim, its measurable
// prediction, and the executable test.
type Hypothesis struct {
	ID             string
	Name           string
	Category       hypothesis.Category
	Statement      string
	Symptom        string
	Prediction     string
	NullPrediction string
	Threshold      map[string]float64
	CausalChain    []string
	Advisory       bool
	Requires       []Capability
	Run            TestFunc
}

// Registry is a read-only catalog of hypotheses keyed by id, preserving
// registration order for deterministic suite execution.
type Registry struct {
	byID  map[string]*Hypothesis
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Hypothesis)}
}

// Register adds a hypothesis. Duplicate ids and incomplete entries are
// rejected.
func (r *Registry) Register(h Hypothesis) error {
	if h.ID == "" || h.Name == "" {
		return fmt.Errorf("hypothesis requires id and name")
	}
	if h.Run == nil {
		return fmt.Errorf("hypothesis %s has no test function", h.ID)
	}
	if _, exists := r.byID[h.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, h.ID)
	}
	copied := h
	r.byID[h.ID] = &copied
	r.order = append(r.order, h.ID)
	return nil
}

// MustRegister panics on registration failure; catalogs are static tables, so
// a bad entry should fail at startup.
func (r *Registry) MustRegister(h Hypothesis) {
	if err := r.Register(h); err != nil {
		panic(err)
	}
}

// Get returns the hypothesis with the given id.
func (r *Registry) Get(id string) (*Hypothesis, bool) {
	h, ok := r.byID[id]
	return h, ok
}

// GetAll returns every hypothesis in registration order.
func (r *Registry) GetAll() []*Hypothesis {
	out := make([]*Hypothesis, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// GetByCategory returns the hypotheses of one category, in registration order.
func (r *Registry) GetByCategory(cat hypothesis.Category) []*Hypothesis {
	var out []*Hypothesis
	for _, id := range r.order {
		if h := r.byID[id]; h.Category == cat {
			out = append(out, h)
		}
	}
	return out
}

// Categories returns the distinct categories in order of first registration.
func (r *Registry) Categories() []hypothesis.Category {
	seen := map[hypothesis.Category]bool{}
	var out []hypothesis.Category
	for _, id := range r.order {
		c := r.byID[id].Category
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of registered hypotheses.
func (r *Registry) Len() int {
	return len(r.order)
}

// NewDefaultRegistry builds the full catalog by merging the category tables
// in their fixed order.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, table := range [][]Hypothesis{
		mapCatalog(),
		eventCatalog(),
		stateCatalog(),
		timeCatalog(),
	} {
		for _, h := range table {
			r.MustRegister(h)
		}
	}
	return r
}
