package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("catalog item not found")
	ErrNameTaken  = errors.New("name already taken")
	ErrUnresolved = errors.New("reference did not resolve")
)

// Item is one catalog entry. Global entries have no owner and are
// visible to everybody; owned entries are visible to their owner only.
// The nutrient fields are set for foods and are per RefWeight grams.
type Item struct {
	ID        int       `json:"id"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	OwnerID   *int      `json:"ownerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	RefWeight *float64 `json:"refWeight,omitempty"`
	Protein   *float64 `json:"protein,omitempty"`
	Carbs     *float64 `json:"carbs,omitempty"`
	Fat       *float64 `json:"fat,omitempty"`
}

// Global reports whether the item belongs to the shared catalog.
func (i *Item) Global() bool {
	return i.OwnerID == nil
}
