package naval

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientQuantity = errors.New("insufficient item quantity")
	ErrUnknownItem          = errors.New("unknown item kind")
	ErrDuplicateItem        = errors.New("item kind listed twice")
)

// ItemKind identifies a consumable. Its integer value is the item id used on
// the wire and in the setup payload.
type ItemKind int

const (
	Bomb     ItemKind = 1
	Spyglass ItemKind = 2
	Torpedo  ItemKind = 3
)

// AllItems returns every item kind in id order.
func AllItems() []ItemKind {
	return []ItemKind{Bomb, Spyglass, Torpedo}
}

// ID returns the wire id of k.
func (k ItemKind) ID() int { return int(k) }

// Valid reports whether k is a known item kind.
func (k ItemKind) Valid() bool {
	return k == Bomb || k == Spyglass || k == Torpedo
}

// Directional reports whether uses of k carry an orientation.
func (k ItemKind) Directional() bool { return k == Torpedo }

func (k ItemKind) String() string {
	switch k {
	case Bomb:
		return "bomb"
	case Spyglass:
		return "spyglass"
	case Torpedo:
		return "torpedo"
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// ParseItemKind maps a name to its kind.
func ParseItemKind(s string) (ItemKind, error) {
	for _, k := range AllItems() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownItem, s)
}

// ItemKindFromID maps a wire id to its kind.
func ItemKindFromID(id int) (ItemKind, error) {
	k := ItemKind(id)
	if !k.Valid() {
		return 0, fmt.Errorf("%w: id %d", ErrUnknownItem, id)
	}
	return k, nil
}

// ConsumableItem is a stock of one item kind.
type ConsumableItem struct {
	Kind     ItemKind
	Quantity int
}

// Inventory tracks remaining quantities per item kind. Quantities never go
// below zero.
type Inventory struct {
	items []ConsumableItem
}

// NewInventory builds an inventory, rejecting unknown kinds, duplicates and
// negative quantities.
func NewInventory(items ...ConsumableItem) (*Inventory, error) {
	inv := &Inventory{}
	seen := make(map[ItemKind]bool, len(items))
	for _, it := range items {
		if !it.Kind.Valid() {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownItem, int(it.Kind))
		}
		if seen[it.Kind] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, it.Kind)
		}
		if it.Quantity < 0 {
			return nil, fmt.Errorf("item %s: negative quantity %d", it.Kind, it.Quantity)
		}
		seen[it.Kind] = true
		inv.items = append(inv.items, it)
	}
	return inv, nil
}

// Quantity returns the remaining count for k; absent kinds have zero.
func (inv *Inventory) Quantity(k ItemKind) int {
	for _, it := range inv.items {
		if it.Kind == k {
			return it.Quantity
		}
	}
	return 0
}

// Consume decrements k by one.
func (inv *Inventory) Consume(k ItemKind) error {
	for i := range inv.items {
		if inv.items[i].Kind != k {
			continue
		}
		if inv.items[i].Quantity == 0 {
			break
		}
		inv.items[i].Quantity--
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInsufficientQuantity, k)
}

// Items returns a copy of the stock in declaration order.
func (inv *Inventory) Items() []ConsumableItem {
	out := make([]ConsumableItem, len(inv.items))
	copy(out, inv.items)
	return out
}
