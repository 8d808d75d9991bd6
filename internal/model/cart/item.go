package cart

import "encoding/json"

// Item is a catalogue medicine as the storefront sends it. The catalogue
// uses either "id" or the legacy "_id" field.
type Item struct {
	ID           string  `json:"id,omitempty"`
	LegacyID     string  `json:"_id,omitempty"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Manufacturer string  `json:"manufacturer,omitempty"`
	Category     string  `json:"category,omitempty"`
	Description  string  `json:"description,omitempty"`
	ImageURL     string  `json:"imageUrl,omitempty"`
}

// Key resolves the item identity: the primary id, falling back to the
// legacy id. Both may be empty; an empty key is still a key.
func (i Item) Key() string {
	if i.ID != "" {
		return i.ID
	}
	return i.LegacyID
}

// Line is one cart entry. Key is resolved once when the line is created or
// loaded and is what every lookup compares against.
type Line struct {
	Key      string `json:"-"`
	Item     Item   `json:"medicine"`
	Quantity int    `json:"quantity"`
}

// NewLine returns a line for item with the given quantity.
func NewLine(item Item, quantity int) Line {
	return Line{Key: item.Key(), Item: item, Quantity: quantity}
}

// Subtotal is unit price times quantity.
func (l Line) Subtotal() float64 {
	return l.Item.Price * float64(l.Quantity)
}

// UnmarshalJSON resolves Key while decoding persisted lines.
func (l *Line) UnmarshalJSON(data []byte) error {
	type wire Line
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = Line(w)
	l.Key = l.Item.Key()
	return nil
}
