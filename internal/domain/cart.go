package domain

// LineItem is one product entry in a cart. Stock is the ceiling the catalog
// reported when the item was added or last refreshed; quantity never exceeds it
// after a successful mutation.
type LineItem struct {
	ProductID string  `json:"productId" bson:"product_id"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Stock     int     `json:"stock" bson:"stock"`
	Image     string  `json:"image" bson:"image"`
	VendorID  string  `json:"vendorId" bson:"vendor_id"`
}

// Cart is the ordered sequence of line items for one identity. ProductID is
// unique across the sequence; insertion order is preserved for display only.
type Cart []LineItem

// Find returns the index of the item with the given product id, or -1.
func (c Cart) Find(productID string) int {
	for i := range c {
		if c[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns an independent copy of the cart.
func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Subtotal sums price times quantity over all items.
func (c Cart) Subtotal() float64 {
	var total float64
	for i := range c {
		total += c[i].Price * float64(c[i].Quantity)
	}
	return total
}
