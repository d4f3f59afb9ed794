package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// ProductRef is the slice of a catalog product the cart cares about. Price
// and name are snapshotted into the line at add time and stay frozen there
// even if the catalog changes afterwards.
type ProductRef struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Line is one cart entry. Quantity is never 0; removal deletes the line.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Summary is the display shape exposed to UI components.
type Summary struct {
	LineCount int             `json:"line_count"`
	Total     decimal.Decimal `json:"total"`
}

// Cart holds one shopper session's pending selection. Lines keep insertion
// order and are unique per product id. The total is always recomputed from
// the lines, never cached.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add increments the quantity of an existing line for the product, or appends
// a new line with quantity 1 and a frozen price/name snapshot.
func (c *Cart) Add(p ProductRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
	})
}

// Remove deletes the line for productID entirely. Removing an absent product
// is a no-op.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// AdjustQuantity applies delta to the line's quantity, clamped to a minimum
// of 1. Reaching zero must go through Remove; the clamp keeps a stray extra
// decrement from silently dropping the line.
func (c *Cart) AdjustQuantity(productID string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			q := c.lines[i].Quantity + delta
			if q < 1 {
				q = 1
			}
			c.lines[i].Quantity = q
			return
		}
	}
}

// Total recomputes Σ(unitPrice × quantity) over the current lines.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalOf(c.lines)
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Summarize returns the line count and computed total for display.
func (c *Cart) Summarize() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summary{LineCount: len(c.lines), Total: totalOf(c.lines)}
}

// Clear empties the cart. Called after a fully successful checkout or by
// explicit shopper action.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

func totalOf(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
