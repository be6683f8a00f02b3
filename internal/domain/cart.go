package domain

import (
	"fmt"
	"strings"
	"time"
)

// Line key prefixes: R for reward lines, O for free ("open") donations.
const (
	PrefixReward       = "R"
	PrefixFreeDonation = "O"
)

// CartItem is one pending contribution line. Amount is in minor units
// (cents); the money goes to the accounting identified by Target.
type CartItem struct {
	Key      string `json:"key" bson:"key"`
	Title    string `json:"title" bson:"title"`
	Amount   int64  `json:"amount" bson:"amount"`
	Quantity int    `json:"quantity" bson:"quantity"`
	Target   string `json:"target" bson:"target"`
	Project  string `json:"project,omitempty" bson:"project,omitempty"`
	Currency string `json:"currency" bson:"currency"`
	Claimed  bool   `json:"claimed,omitempty" bson:"claimed,omitempty"`
}

// Cart holds a session's pending contributions across projects.
// NextSeq is a monotonic counter used for line keys; unlike a positional
// index it never collides after removal and re-insertion.
type Cart struct {
	OwnerID   string     `json:"owner_id" bson:"owner_id"`
	Items     []CartItem `json:"items" bson:"items"`
	NextSeq   int64      `json:"next_seq" bson:"next_seq"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// AddItem inserts or overwrites the line matching (Target, Title).
// A zero quantity deselects: it removes a matching line and is a no-op
// otherwise. The item's Key is assigned here; any caller-provided key is
// ignored. Reports whether the cart changed.
func (c *Cart) AddItem(item CartItem, freeDonationLabel string) bool {
	for i, existing := range c.Items {
		if existing.Target != item.Target || existing.Title != item.Title {
			continue
		}
		if item.Quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
		if existing.Quantity == item.Quantity && existing.Amount == item.Amount {
			return false
		}
		c.Items[i].Quantity = item.Quantity
		c.Items[i].Amount = item.Amount
		return true
	}

	if item.Quantity <= 0 {
		return false
	}

	prefix := PrefixReward
	if titlesEqualFold(item.Title, freeDonationLabel) {
		prefix = PrefixFreeDonation
	}
	item.Key = fmt.Sprintf("%s-%s-%d", item.Target, prefix, c.NextSeq)
	c.NextSeq++
	c.Items = append(c.Items, item)
	return true
}

// RemoveItem drops the line with the given key; no-op when absent.
func (c *Cart) RemoveItem(key string) bool {
	for i, item := range c.Items {
		if item.Key == key {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateQuantity sets the quantity of a line. Zero or negative removes
// the line, same as RemoveItem.
func (c *Cart) UpdateQuantity(key string, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveItem(key)
	}
	for i, item := range c.Items {
		if item.Key == key {
			if item.Quantity == quantity {
				return false
			}
			c.Items[i].Quantity = quantity
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() bool {
	if len(c.Items) == 0 {
		return false
	}
	c.Items = nil
	return true
}

// ClearProject removes every line belonging to one project, leaving the
// rest untouched.
func (c *Cart) ClearProject(projectID string) bool {
	kept := c.Items[:0]
	changed := false
	for _, item := range c.Items {
		if item.Project == projectID {
			changed = true
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return changed
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalAmount is the sum of amount*quantity over all lines, in minor units.
func (c *Cart) TotalAmount() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Amount * int64(item.Quantity)
	}
	return total
}

// ItemsByProject groups lines by project id. Lines without a project end
// up under the empty key.
func (c *Cart) ItemsByProject() map[string][]CartItem {
	groups := make(map[string][]CartItem)
	for _, item := range c.Items {
		groups[item.Project] = append(groups[item.Project], item)
	}
	return groups
}

// Clone returns an independent copy; mutating it leaves the original
// untouched.
func (c *Cart) Clone() *Cart {
	clone := *c
	clone.Items = make([]CartItem, len(c.Items))
	copy(clone.Items, c.Items)
	return &clone
}

// FindItem returns the line with the given key, or nil.
func (c *Cart) FindItem(key string) *CartItem {
	for i := range c.Items {
		if c.Items[i].Key == key {
			return &c.Items[i]
		}
	}
	return nil
}

func titlesEqualFold(a, b string) bool {
	return normalizeTitle(a) == normalizeTitle(b)
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
