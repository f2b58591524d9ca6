package domain

// CartLine is one product's presence in the user's cart. LineID is issued by the
// server; lines added optimistically before the next refresh carry LineID 0.
// UnitPrice is snapshotted in đồng when the line was added, not re-fetched on render.
type CartLine struct {
	LineID    int64  `json:"line_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"`
}

// Subtotal returns UnitPrice × Quantity.
func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// CartSnapshot is the full set of cart lines for one user at one point in time.
// At most one line per ProductID; every line has Quantity >= 1.
type CartSnapshot struct {
	UserID int64
	Lines  []CartLine
}

// Clone returns a deep copy, used to capture pre-mutation state for rollback.
func (s CartSnapshot) Clone() CartSnapshot {
	out := CartSnapshot{UserID: s.UserID}
	if s.Lines != nil {
		out.Lines = make([]CartLine, len(s.Lines))
		copy(out.Lines, s.Lines)
	}
	return out
}

func (s CartSnapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// FindByProduct returns the index of the line holding productID, or -1.
func (s CartSnapshot) FindByProduct(productID int64) int {
	for i := range s.Lines {
		if s.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// FindByLine returns the index of the line with lineID, or -1.
func (s CartSnapshot) FindByLine(lineID int64) int {
	for i := range s.Lines {
		if s.Lines[i].LineID == lineID {
			return i
		}
	}
	return -1
}
