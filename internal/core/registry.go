package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDependencyCycle is returned when validator dependencies loop.
	ErrDependencyCycle = errors.New("circular validator dependency")

	// ErrUnknownDependency is returned when a validator depends on a name
	// that is not registered.
	ErrUnknownDependency = errors.New("unknown validator dependency")

	// ErrValidatorNotFound is returned when a validator name is not registered.
	ErrValidatorNotFound = errors.New("validator not found")
)

// Registry holds validators by name. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Validator
	order      []string // registration order, for deterministic ties
}

// NewRegistry creates a registry holding vs.
func NewRegistry(vs ...Validator) *Registry {
	r := &Registry{validators: make(map[string]Validator)}
	for _, v := range vs {
		r.Register(v)
	}
	return r
}

// Register adds a validator, replacing any validator with the same name.
// A replaced validator keeps its original registration position.
func (r *Registry) Register(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := v.Name()
	if _, exists := r.validators[name]; !exists {
		r.order = append(r.order, name)
	}
	r.validators[name] = v
}

// Get returns a validator by name.
// Returns false if not found.
func (r *Registry) Get(name string) (Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.validators[name]
	return v, ok
}

// Len returns the number of registered validators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.validators)
}

// All returns every registered validator sorted by priority.
// Ties keep registration order.
func (r *Registry) All() []Validator {
	return SortedByPriority(r.registered())
}

func (r *Registry) registered() []Validator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Validator, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.validators[name])
	}
	return out
}

// Enabled returns the validators that are enabled and, when the run's
// config names validators, listed there. An empty list enables all.
// Registration order is preserved.
func (r *Registry) Enabled(vctx *ValidationContext) []Validator {
	var allow map[string]bool
	if vctx != nil && len(vctx.Config.EnabledValidators) > 0 {
		allow = make(map[string]bool, len(vctx.Config.EnabledValidators))
		for _, n := range vctx.Config.EnabledValidators {
			allow[strings.TrimSpace(n)] = true
		}
	}

	var out []Validator
	for _, v := range r.registered() {
		if !v.Enabled() {
			continue
		}
		if allow != nil && !allow[v.Name()] {
			continue
		}
		out = append(out, v)
	}
	return out
}

// SortedByPriority returns a copy of vs sorted by ascending priority.
// The sort is stable.
func SortedByPriority(vs []Validator) []Validator {
	out := append([]Validator(nil), vs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

// ResolveDependencies orders vs so that every validator comes after the
// dependencies it shares the list with. Input order is otherwise kept.
//
// Dependencies that are registered but absent from vs (disabled or filtered
// out) are ignored. A dependency on an unregistered name fails with
// ErrUnknownDependency, and a loop fails with ErrDependencyCycle naming the
// path.
func (r *Registry) ResolveDependencies(vs []Validator) ([]Validator, error) {
	present := make(map[string]Validator, len(vs))
	for _, v := range vs {
		present[v.Name()] = v
	}

	var (
		out      = make([]Validator, 0, len(vs))
		visited  = make(map[string]bool, len(vs))
		visiting = make(map[string]bool)
		stack    []string
	)

	var visit func(v Validator) error
	visit = func(v Validator) error {
		name := v.Name()
		if visited[name] {
			return nil
		}
		if visiting[name] {
			start := 0
			for i, n := range stack {
				if n == name {
					start = i
					break
				}
			}
			path := append(append([]string(nil), stack[start:]...), name)
			return fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(path, " -> "))
		}

		visiting[name] = true
		stack = append(stack, name)
		for _, dep := range v.Dependencies() {
			dv, ok := present[dep]
			if !ok {
				if _, registered := r.Get(dep); !registered {
					return fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, name, dep)
				}
				continue
			}
			if err := visit(dv); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(visiting, name)
		visited[name] = true
		out = append(out, v)
		return nil
	}

	for _, v := range vs {
		if err := visit(v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ExecutionOrder returns the validators to run for vctx: enabled, sorted by
// priority, then dependency-resolved.
func (r *Registry) ExecutionOrder(vctx *ValidationContext) ([]Validator, error) {
	return r.ResolveDependencies(SortedByPriority(r.Enabled(vctx)))
}
