package core

import "fmt"

// Trade is an immutable record produced by a match. Price is always the
// resting (maker) order's price, per the maker-price rule; sequence is
// the per-market, strictly increasing trade sequence number.
type Trade struct {
	Market   string  `json:"market"`
	BuyID    OrderID `json:"buy_order_id"`
	SellID   OrderID `json:"sell_order_id"`
	Price    Price   `json:"price"`
	Quantity int64   `json:"quantity"`
	Sequence uint64  `json:"sequence"`
}

// String renders a Trade for logging.
func (t *Trade) String() string {
	return fmt.Sprintf("Trade[market=%s buy=%s sell=%s price=%d qty=%d seq=%d]",
		t.Market, t.BuyID, t.SellID, t.Price, t.Quantity, t.Sequence)
}
