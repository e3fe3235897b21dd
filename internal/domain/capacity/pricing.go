package capacity

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SeasonalPrice overrides the base price inside its window while active
type SeasonalPrice struct {
	Name   string          `json:"name"`
	Window DateRange       `json:"window"`
	Price  decimal.Decimal `json:"price"`
	Active bool            `json:"active"`
}

// PricingRules are read-only inputs to availability queries; capacity mutations never touch them
type PricingRules struct {
	BasePrice decimal.Decimal `json:"base_price"`
	Currency  string          `json:"currency,omitempty"`
	Seasons   []SeasonalPrice `json:"seasons,omitempty"`
}

// PriceFor returns the first active season covering date, or the base price
func (p PricingRules) PriceFor(date time.Time) decimal.Decimal {
	for _, s := range p.Seasons {
		if s.Active && s.Window.Contains(date) {
			return s.Price
		}
	}
	return p.BasePrice
}

// Value implements driver.Valuer
func (p PricingRules) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (p *PricingRules) Scan(value any) error {
	return scanJSON(value, p)
}
