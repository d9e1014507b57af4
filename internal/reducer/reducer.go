package reducer

import "github.com/mpetrov/cartkeeper/internal/domain"

// Intent is a named mutation request consumed by Apply. The set of intents is
// closed; anything else leaves the cart untouched.
type Intent interface {
	intent()
}

// AddItem appends the item, or merges quantities when the product is already in
// the cart. The resulting quantity is clamped to the incoming stock ceiling, and
// the stored stock value is refreshed from the intent.
type AddItem struct {
	Item domain.LineItem
}

// RemoveItem drops the item with the given product id. Absent ids are a no-op.
type RemoveItem struct {
	ProductID string
}

// UpdateQuantity sets the item's quantity to the requested value, clamped to the
// item's known stock ceiling. A target of zero or less removes the item.
type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

// ClearCart empties the cart unconditionally.
type ClearCart struct{}

func (AddItem) intent()        {}
func (RemoveItem) intent()     {}
func (UpdateQuantity) intent() {}
func (ClearCart) intent()      {}

// Apply is a pure state transition over the cart. It never fails: a nil or
// unrecognized intent returns the input unchanged.
func Apply(cart domain.Cart, in Intent) domain.Cart {
	switch in := in.(type) {
	case AddItem:
		return applyAdd(cart, in.Item)
	case RemoveItem:
		return applyRemove(cart, in.ProductID)
	case UpdateQuantity:
		if in.Quantity <= 0 {
			return applyRemove(cart, in.ProductID)
		}
		return applyUpdate(cart, in.ProductID, in.Quantity)
	case ClearCart:
		return domain.Cart{}
	default:
		return cart
	}
}

func applyAdd(cart domain.Cart, item domain.LineItem) domain.Cart {
	idx := cart.Find(item.ProductID)
	if idx < 0 {
		item.Quantity = clamp(item.Quantity, item.Stock)
		if item.Quantity <= 0 {
			return cart
		}
		out := cart.Clone()
		return append(out, item)
	}

	out := cart.Clone()
	merged := out[idx]
	merged.Quantity = clamp(merged.Quantity+item.Quantity, item.Stock)
	merged.Stock = item.Stock
	if merged.Quantity <= 0 {
		return applyRemove(cart, item.ProductID)
	}
	out[idx] = merged
	return out
}

func applyRemove(cart domain.Cart, productID string) domain.Cart {
	idx := cart.Find(productID)
	if idx < 0 {
		return cart
	}
	out := make(domain.Cart, 0, len(cart)-1)
	out = append(out, cart[:idx]...)
	return append(out, cart[idx+1:]...)
}

func applyUpdate(cart domain.Cart, productID string, quantity int) domain.Cart {
	idx := cart.Find(productID)
	if idx < 0 {
		return cart
	}
	out := cart.Clone()
	updated := out[idx]
	updated.Quantity = clamp(quantity, updated.Stock)
	if updated.Quantity <= 0 {
		return applyRemove(cart, productID)
	}
	out[idx] = updated
	return out
}

func clamp(quantity, stock int) int {
	if quantity > stock {
		return stock
	}
	return quantity
}
