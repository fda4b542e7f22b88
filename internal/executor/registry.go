package executor

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sakif/cellexec/internal/apperror"
)

// NotSupportedError is returned by Registry.Resolve for an unknown
// language. It carries the supported set so the message describes itself.
type NotSupportedError struct {
	Language  string
	Supported []string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("Language %q not supported (supported: %s)", e.Language, strings.Join(e.Supported, ", "))
}

func (e *NotSupportedError) Unwrap() error {
	return apperror.ErrUnsupportedLanguage
}

// Registry maps language identifiers to strategies. Identifiers match
// case-sensitively. The builtin set is registered once at construction;
// Register stays safe to call later.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register binds a language to a strategy, replacing any previous binding.
func (r *Registry) Register(language string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[language] = s
}

func (r *Registry) Resolve(language string) (Strategy, error) {
	r.mu.RLock()
	s, ok := r.strategies[language]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotSupportedError{Language: language, Supported: r.Languages()}
	}
	return s, nil
}

// Languages returns the registered identifiers in sorted order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	langs := make([]string, 0, len(r.strategies))
	for lang := range r.strategies {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
