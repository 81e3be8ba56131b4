package format

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Inspector reports the state of one format type in the document at path.
// A feature that is simply missing is not an error: return a state with
// Present false. Return an error wrapping ErrDocumentUnreadable when the
// package cannot be opened or parsed.
type Inspector interface {
	Inspect(path string) (FormatState, error)
}

// InspectorFunc adapts a plain function to the Inspector interface.
type InspectorFunc func(path string) (FormatState, error)

func (f InspectorFunc) Inspect(path string) (FormatState, error) { return f(path) }

// Guard vets a document before any inspector opens it.
type Guard interface {
	CheckPath(path string) error
	CheckFileSize(size int64) error
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithGuard installs a guard consulted before every inspection.
func WithGuard(g Guard) RegistryOption {
	return func(r *Registry) {
		r.guard = g
	}
}

// Registry maps format types to inspectors. It is built explicitly and
// handed to the verification machinery; there is no package-level default.
type Registry struct {
	mu         sync.RWMutex
	inspectors map[FormatType]Inspector
	guard      Guard
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		inspectors: make(map[FormatType]Inspector),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an inspector. Registering a type twice is an error.
func (r *Registry) Register(ft FormatType, insp Inspector) error {
	if insp == nil {
		return fmt.Errorf("register %s: nil inspector", ft)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.inspectors[ft]; exists {
		return fmt.Errorf("inspector already registered: %s", ft)
	}
	r.inspectors[ft] = insp
	return nil
}

// Lookup returns the inspector for ft.
func (r *Registry) Lookup(ft FormatType) (Inspector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	insp, ok := r.inspectors[ft]
	return insp, ok
}

// Types returns the registered format types in sorted order.
func (r *Registry) Types() []FormatType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]FormatType, 0, len(r.inspectors))
	for ft := range r.inspectors {
		out = append(out, ft)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Inspect runs the inspector for ft against path. It never returns an
// error: every failure, including a panic inside the inspector, comes back
// as an ErrorState so callers can turn it into a verification result.
func (r *Registry) Inspect(path string, ft FormatType) (state FormatState) {
	insp, ok := r.Lookup(ft)
	if !ok {
		return ErrorState(fmt.Errorf("%w for %s", ErrMissingInspector, ft))
	}
	if err := r.admit(path); err != nil {
		return ErrorState(err)
	}

	defer func() {
		if p := recover(); p != nil {
			state = ErrorState(fmt.Errorf("%w: %s panicked: %v", ErrInspectorFault, ft, p))
		}
	}()

	st, err := insp.Inspect(path)
	if err != nil {
		if !errors.Is(err, ErrDocumentUnreadable) && !errors.Is(err, ErrDocumentNotFound) {
			err = fmt.Errorf("%w: %s: %w", ErrInspectorFault, ft, err)
		}
		return ErrorState(err)
	}
	if !st.Consistent() {
		return ErrorState(fmt.Errorf("%w: %s reported present=%t count=%d",
			ErrInconsistentState, ft, st.Present, st.Count))
	}

	details, err := Normalize(st.Details)
	if err != nil {
		return ErrorState(fmt.Errorf("%w: %s: %w", ErrInspectorFault, ft, err))
	}
	st.Details = details
	return st
}

func (r *Registry) admit(path string) error {
	if r.guard != nil {
		if err := r.guard.CheckPath(path); err != nil {
			return fmt.Errorf("%w: %w", ErrDocumentDenied, err)
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return fmt.Errorf("%w: %w", ErrDocumentUnreadable, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrDocumentUnreadable, path)
	}
	if r.guard != nil {
		if err := r.guard.CheckFileSize(info.Size()); err != nil {
			return fmt.Errorf("%w: %w", ErrDocumentDenied, err)
		}
	}
	return nil
}
