package contracts

import "time"

// Bar is one trading session's OHLCV observation for one symbol.
// Immutable once fetched.
type Bar struct {
	Symbol      string    `json:"symbol"`
	SessionDate time.Time `json:"session_date"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      int64     `json:"volume"`
}

// DollarVolume returns the traded value of the session.
func (b Bar) DollarVolume() float64 {
	return b.Close * float64(b.Volume)
}
