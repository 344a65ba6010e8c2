package modeladapter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/germanamz/modelgate/pkg/models"
)

// GenericFamily is the family used by providers that name none.
const GenericFamily = "generic"

// ErrUnknownFamily is returned for a provider whose family has no factory.
var ErrUnknownFamily = errors.New("unknown adapter family")

// Factory builds the adapter of one provider.
type Factory func(p models.Provider, deps Deps) (*ModelAdapter, error)

// Factories maps family names to factories.
type Factories map[string]Factory

// Register adds or replaces the factory of a family.
func (f Factories) Register(family string, fn Factory) {
	f[normalizeFamily(family)] = fn
}

// Lookup returns the factory of a family. The empty family resolves to
// GenericFamily.
func (f Factories) Lookup(family string) (Factory, error) {
	fn, ok := f[normalizeFamily(family)]
	if !ok {
		return nil, fmt.Errorf("modeladapter: family %q: %w", family, ErrUnknownFamily)
	}
	return fn, nil
}

// Build looks up the provider's family and runs its factory.
func (f Factories) Build(p models.Provider, deps Deps) (*ModelAdapter, error) {
	fn, err := f.Lookup(p.Family)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", p.ID, err)
	}

	a, err := fn(p, deps)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", p.ID, err)
	}

	return a, nil
}

// Families returns the registered family names, sorted.
func (f Factories) Families() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func normalizeFamily(family string) string {
	family = strings.ToLower(strings.TrimSpace(family))
	if family == "" {
		return GenericFamily
	}
	return family
}
