// Package registry keeps the operation table a client dispatches on and loads
// it from JSON catalogs stored on disk or in S3.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gurre/awscore/shape"
)

// ErrUnknownOperation is returned by Lookup for unregistered names.
var ErrUnknownOperation = fmt.Errorf("unknown operation")

// Registry maps operation names to their routes and shapes. It is safe for
// concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]shape.Operation
}

// New returns a registry holding ops.
func New(ops ...shape.Operation) (*Registry, error) {
	r := &Registry{ops: make(map[string]shape.Operation, len(ops))}
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds op, replacing any operation of the same name.
func (r *Registry) Register(op shape.Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("failed to register operation: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]shape.Operation)
	}
	r.ops[op.Name] = op
	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (shape.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	if !ok {
		return shape.Operation{}, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	return op, nil
}

// Operations returns the registered names in sorted order.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
