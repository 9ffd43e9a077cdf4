package cart

import (
	"encoding/json"
	"iter"
	"slices"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
)

type LineKey = catalog.VersionKey

type Line struct {
	ProductID string `json:"product_id"`
	Version   string `json:"version,omitempty"`
	Quantity  int    `json:"quantity"`
	Selected  bool   `json:"selected"`
}

func (l Line) Key() LineKey { return LineKey{ProductID: l.ProductID, Label: l.Version} }

// Cart holds at most one line per (product, version). Lines are looked up by
// key; order only tracks insertion for display.
type Cart struct {
	UserID    string
	Revision  int64
	UpdatedAt time.Time

	lines map[LineKey]*Line
	order []LineKey
}

func New(userID string) *Cart {
	return &Cart{UserID: userID, lines: make(map[LineKey]*Line)}
}

// FromLines rebuilds a cart from stored lines, merging duplicate keys.
func FromLines(userID string, revision int64, updatedAt time.Time, lines []Line) *Cart {
	c := New(userID)
	c.Revision = revision
	c.UpdatedAt = updatedAt
	for _, l := range lines {
		if existing, ok := c.lines[l.Key()]; ok {
			existing.Quantity += l.Quantity
			continue
		}
		cp := l
		c.lines[l.Key()] = &cp
		c.order = append(c.order, l.Key())
	}
	return c
}

// AddLine merges into an existing line with the same key or appends a new
// selected one.
func (c *Cart) AddLine(key LineKey, quantity int) error {
	if key.ProductID == "" {
		return apperr.InvalidArgument("product id is required")
	}
	if quantity < 1 {
		return apperr.InvalidArgument("quantity must be at least 1, got %d", quantity)
	}
	if l, ok := c.lines[key]; ok {
		l.Quantity += quantity
	} else {
		c.lines[key] = &Line{ProductID: key.ProductID, Version: key.Label, Quantity: quantity, Selected: true}
		c.order = append(c.order, key)
	}
	c.touch()
	return nil
}

func (c *Cart) SetQuantity(key LineKey, quantity int) error {
	if quantity < 1 {
		return apperr.InvalidArgument("quantity must be at least 1, got %d", quantity)
	}
	l, ok := c.lines[key]
	if !ok {
		return apperr.NotFound("cart line %s", key)
	}
	l.Quantity = quantity
	c.touch()
	return nil
}

func (c *Cart) ToggleSelected(key LineKey) error {
	l, ok := c.lines[key]
	if !ok {
		return apperr.NotFound("cart line %s", key)
	}
	l.Selected = !l.Selected
	c.touch()
	return nil
}

func (c *Cart) RemoveLine(key LineKey) error {
	if _, ok := c.lines[key]; !ok {
		return apperr.NotFound("cart line %s", key)
	}
	c.drop(key)
	c.touch()
	return nil
}

// Prune removes the given keys, skipping any that are already gone, and
// reports how many lines were removed.
func (c *Cart) Prune(keys []LineKey) int {
	n := 0
	for _, k := range keys {
		if _, ok := c.lines[k]; ok {
			c.drop(k)
			n++
		}
	}
	if n > 0 {
		c.touch()
	}
	return n
}

// SelectedLines yields a copy of every selected line in display order. The
// sequence can be ranged over more than once.
func (c *Cart) SelectedLines() iter.Seq[Line] {
	return func(yield func(Line) bool) {
		for _, k := range c.order {
			l := c.lines[k]
			if !l.Selected {
				continue
			}
			if !yield(*l) {
				return
			}
		}
	}
}

func (c *Cart) Line(key LineKey) (Line, bool) {
	l, ok := c.lines[key]
	if !ok {
		return Line{}, false
	}
	return *l, true
}

func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, *c.lines[k])
	}
	return out
}

func (c *Cart) Len() int { return len(c.order) }

func (c *Cart) Clone() *Cart {
	return FromLines(c.UserID, c.Revision, c.UpdatedAt, c.Lines())
}

func (c *Cart) drop(key LineKey) {
	delete(c.lines, key)
	c.order = slices.DeleteFunc(c.order, func(k LineKey) bool { return k == key })
}

func (c *Cart) touch() { c.UpdatedAt = time.Now().UTC() }

type cartJSON struct {
	UserID    string    `json:"user_id"`
	Revision  int64     `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
	Lines     []Line    `json:"lines"`
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(cartJSON{UserID: c.UserID, Revision: c.Revision, UpdatedAt: c.UpdatedAt, Lines: c.Lines()})
}

func (c *Cart) UnmarshalJSON(b []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = *FromLines(raw.UserID, raw.Revision, raw.UpdatedAt, raw.Lines)
	return nil
}
