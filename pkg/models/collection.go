package models

import "slices"

// Collection is an insertion-ordered set of models keyed by id.
// A Collection is not safe for concurrent mutation; the registry fills it
// before publishing it and treats it as read-only afterwards.
type Collection struct {
	order []string
	byID  map[string]*Model
}

// NewCollection creates a collection holding ms in order.
func NewCollection(ms ...*Model) *Collection {
	c := &Collection{byID: make(map[string]*Model, len(ms))}
	for _, m := range ms {
		c.Add(m)
	}
	return c
}

// Add inserts m. When a model with the same id already exists it is replaced
// in place and Add reports true.
func (c *Collection) Add(m *Model) bool {
	if m == nil {
		return false
	}
	if c.byID == nil {
		c.byID = make(map[string]*Model)
	}

	_, replaced := c.byID[m.ID()]
	if !replaced {
		c.order = append(c.order, m.ID())
	}
	c.byID[m.ID()] = m

	return replaced
}

// Get returns the model with exactly the given id.
func (c *Collection) Get(id string) (*Model, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// Find returns the model matching id, trying an exact lookup before the
// provider-qualified comparison of IDMatches. It returns nil when nothing matches.
func (c *Collection) Find(id string) *Model {
	if m, ok := c.byID[id]; ok {
		return m
	}
	for _, k := range c.order {
		if m := c.byID[k]; m.IDMatches(id) {
			return m
		}
	}
	return nil
}

// Has reports whether a model matching id is present.
func (c *Collection) Has(id string) bool { return c.Find(id) != nil }

// Len returns the number of models.
func (c *Collection) Len() int { return len(c.order) }

// Count is an alias of Len.
func (c *Collection) Count() int { return c.Len() }

// IDs returns the model ids in insertion order.
func (c *Collection) IDs() []string { return slices.Clone(c.order) }

// All returns the models in insertion order.
func (c *Collection) All() []*Model {
	out := make([]*Model, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Filter returns a new collection with the models for which keep returns true.
func (c *Collection) Filter(keep func(*Model) bool) *Collection {
	out := NewCollection()
	for _, m := range c.All() {
		if keep(m) {
			out.Add(m)
		}
	}
	return out
}

// Map is the catalogue of one usage type: its models plus the models chosen as
// defaults and system models per capability.
type Map struct {
	usage    UsageType
	models   *Collection
	defaults map[string]string
	system   map[string]string
}

// NewMap creates an empty map for usage type u.
func NewMap(u UsageType) *Map {
	return &Map{
		usage:    u,
		models:   NewCollection(),
		defaults: make(map[string]string),
		system:   make(map[string]string),
	}
}

// UsageType returns the usage type the map was built for.
func (m *Map) UsageType() UsageType { return m.usage }

// Models returns the map's collection.
func (m *Map) Models() *Collection { return m.models }

// Add inserts a model and reports whether it replaced an existing one.
func (m *Map) Add(model *Model) bool { return m.models.Add(model) }

// SetDefault selects the default model for a capability ("text", "image", ...).
// It reports false and changes nothing when id is not in the map.
func (m *Map) SetDefault(capability, id string) bool {
	found := m.models.Find(id)
	if found == nil {
		return false
	}
	m.defaults[capability] = found.ID()
	return true
}

// Default returns the default model for a capability, or nil.
func (m *Map) Default(capability string) *Model {
	id, ok := m.defaults[capability]
	if !ok {
		return nil
	}
	found, _ := m.models.Get(id)
	return found
}

// SetSystem selects the model the gateway itself uses for a capability
// (titles, summaries). It reports false when id is not in the map.
func (m *Map) SetSystem(capability, id string) bool {
	found := m.models.Find(id)
	if found == nil {
		return false
	}
	m.system[capability] = found.ID()
	return true
}

// System returns the system model for a capability, or nil.
func (m *Map) System(capability string) *Model {
	id, ok := m.system[capability]
	if !ok {
		return nil
	}
	found, _ := m.models.Get(id)
	return found
}
