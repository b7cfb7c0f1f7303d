package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
	"github.com/tailortalk/tailortalk/pkg/provider/llm"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// LLMFactory constructs an LLM provider from its config entry.
type LLMFactory func(ProviderEntry) (llm.Provider, error)

// CalendarFactory constructs a calendar backend from its config entry. The
// context covers backend setup such as credential exchange.
type CalendarFactory func(context.Context, CalendarEntry) (calendar.Provider, error)

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	llm      map[string]LLMFactory
	calendar map[string]CalendarFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm:      make(map[string]LLMFactory),
		calendar: make(map[string]CalendarFactory),
	}
}

// RegisterLLM registers an LLM provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory LLMFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterCalendar registers a calendar backend factory under name.
func (r *Registry) RegisterCalendar(name string, factory CalendarFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calendar[name] = factory
}

// CreateLLM instantiates an LLM provider using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateCalendar instantiates a calendar backend using the factory registered
// under entry.Name.
func (r *Registry) CreateCalendar(ctx context.Context, entry CalendarEntry) (calendar.Provider, error) {
	r.mu.RLock()
	factory, ok := r.calendar[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: calendar/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(ctx, entry)
}
