// Package session stores the per-tab document context: the selected
// company, model name, model record id and filename.
package session

import (
	"context"
	"errors"
	"fmt"
)

// Slot names one of the four independent context values.
type Slot string

// Slot keys as stored by the page.
const (
	SlotCompany   Slot = "company_name"
	SlotModelName Slot = "product_name"
	SlotModelID   Slot = "db_id"
	SlotFilename  Slot = "filename"
)

// Slots lists every slot in display order.
var Slots = []Slot{SlotCompany, SlotModelName, SlotModelID, SlotFilename}

// ErrInvalidSlot is returned for slot names outside Slots.
var ErrInvalidSlot = errors.New("invalid session slot")

// Context is the document context of one session. Absent slots are "".
type Context struct {
	Company   string `json:"company_name"`
	ModelName string `json:"product_name"`
	ModelID   string `json:"db_id"`
	Filename  string `json:"filename"`
}

// Get returns the value of slot s.
func (c Context) Get(s Slot) string {
	switch s {
	case SlotCompany:
		return c.Company
	case SlotModelName:
		return c.ModelName
	case SlotModelID:
		return c.ModelID
	case SlotFilename:
		return c.Filename
	}
	return ""
}

// With returns a copy of c with slot s set to value.
func (c Context) With(s Slot, value string) (Context, error) {
	switch s {
	case SlotCompany:
		c.Company = value
	case SlotModelName:
		c.ModelName = value
	case SlotModelID:
		c.ModelID = value
	case SlotFilename:
		c.Filename = value
	default:
		return c, fmt.Errorf("%w: %q", ErrInvalidSlot, s)
	}
	return c, nil
}

// IsZero reports whether every slot is empty.
func (c Context) IsZero() bool {
	return c == Context{}
}

// ValidSlot reports whether s is one of the known slots.
func ValidSlot(s Slot) bool {
	for _, known := range Slots {
		if s == known {
			return true
		}
	}
	return false
}

// Store persists contexts keyed by session id.
type Store interface {
	// Get returns the context for id; unknown ids yield a zero Context.
	Get(ctx context.Context, id string) (Context, error)
	// SetSlot writes a single slot, leaving the others untouched.
	SetSlot(ctx context.Context, id string, slot Slot, value string) error
	// Set overwrites all four slots.
	Set(ctx context.Context, id string, c Context) error
	// Clear removes every slot for id.
	Clear(ctx context.Context, id string) error
	// List returns the ids that hold at least one slot.
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Handle binds a Store to one session id.
type Handle struct {
	store Store
	id    string
}

// NewHandle returns a handle for session id in store.
func NewHandle(store Store, id string) *Handle {
	return &Handle{store: store, id: id}
}

// ID returns the bound session id.
func (h *Handle) ID() string { return h.id }

// Load reads the full context.
func (h *Handle) Load(ctx context.Context) (Context, error) {
	return h.store.Get(ctx, h.id)
}

// Replace overwrites the full context.
func (h *Handle) Replace(ctx context.Context, c Context) error {
	return h.store.Set(ctx, h.id, c)
}

// SetCompany writes the company slot.
func (h *Handle) SetCompany(ctx context.Context, company string) error {
	return h.store.SetSlot(ctx, h.id, SlotCompany, company)
}

// SetModel writes the model name, record id and filename slots.
func (h *Handle) SetModel(ctx context.Context, name, id, filename string) error {
	if err := h.store.SetSlot(ctx, h.id, SlotModelName, name); err != nil {
		return err
	}
	if err := h.store.SetSlot(ctx, h.id, SlotModelID, id); err != nil {
		return err
	}
	return h.store.SetSlot(ctx, h.id, SlotFilename, filename)
}

// Clear removes the context.
func (h *Handle) Clear(ctx context.Context) error {
	return h.store.Clear(ctx, h.id)
}
