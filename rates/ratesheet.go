/*
Package rates provides JSON rate-sheet parsing and price resolution.

PURPOSE:
  Converts JSON rate definitions into typed Rate values. Rate sheets cover
  activities, meals, and sleeper trains; operations staff maintain them
  through the console, so they live as JSON configs in the store rather
  than as code.

JSON SCHEMA:
  {
    "id": "act-felucca",
    "name": "Felucca Sunset Sail",
    "category": "activity",
    "unit": "per_person",
    "currency": "EGP",
    "base_price": "450",
    "seasons": [
      {"from": "2024-12-15", "to": "2025-01-10", "price": "600"}
    ]
  }

PRICING:
  PriceFor(date, travelers) picks the first season window containing the
  date, falling back to the base price. per_person rates multiply by the
  traveler count; per_group and per_cabin do not.

COST MODE:
  A service costed in auto mode derives its cost from the rate sheet; in
  manual mode a staff-entered figure holds until the mode flips back to
  auto. The mode travels with the service, not the rate.

SEE ALSO:
  - store/sqlite: rate persistence
  - api/handlers.go: rate-sheet CRUD endpoints
*/
package rates

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian/tour-office/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RateJSON is the JSON representation of a rate-sheet item.
type RateJSON struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Category  string       `json:"category"` // activity, meal, sleeper_train
	Unit      string       `json:"unit"`     // per_person, per_group, per_cabin
	Currency  string       `json:"currency"`
	BasePrice string       `json:"base_price"`
	Seasons   []SeasonJSON `json:"seasons,omitempty"`
}

// SeasonJSON is one seasonal price window.
type SeasonJSON struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Price string `json:"price"`
}

// =============================================================================
// TYPED RATE
// =============================================================================

type Category string

const (
	CategoryActivity     Category = "activity"
	CategoryMeal         Category = "meal"
	CategorySleeperTrain Category = "sleeper_train"
)

type PricingUnit string

const (
	PerPerson PricingUnit = "per_person"
	PerGroup  PricingUnit = "per_group"
	PerCabin  PricingUnit = "per_cabin"
)

type CostMode string

const (
	CostModeAuto   CostMode = "auto"
	CostModeManual CostMode = "manual"
)

// Season is a date window with its own price. Windows are closed
// intervals, same convention as booking spans.
type Season struct {
	From  time.Time
	To    time.Time
	Price decimal.Decimal
}

// Rate is a parsed, validated rate-sheet item.
type Rate struct {
	ID        string
	Name      string
	Category  Category
	Unit      PricingUnit
	Currency  string
	BasePrice decimal.Decimal
	Seasons   []Season
}

// =============================================================================
// PARSING
// =============================================================================

const dateLayout = "2006-01-02"

// Parse converts a JSON rate definition into a validated Rate.
func Parse(raw string) (*Rate, error) {
	var rj RateJSON
	if err := json.Unmarshal([]byte(raw), &rj); err != nil {
		return nil, fmt.Errorf("invalid rate JSON: %w", err)
	}
	return FromJSON(rj)
}

// FromJSON validates and converts an already-decoded RateJSON.
func FromJSON(rj RateJSON) (*Rate, error) {
	if rj.ID == "" {
		return nil, fmt.Errorf("rate id is required")
	}
	if rj.Name == "" {
		return nil, fmt.Errorf("rate name is required")
	}

	cat := Category(rj.Category)
	switch cat {
	case CategoryActivity, CategoryMeal, CategorySleeperTrain:
	default:
		return nil, fmt.Errorf("unknown rate category %q", rj.Category)
	}

	unit := PricingUnit(rj.Unit)
	switch unit {
	case PerPerson, PerGroup, PerCabin:
	case "":
		unit = PerPerson
	default:
		return nil, fmt.Errorf("unknown pricing unit %q", rj.Unit)
	}

	// Sleeper-train berths are sold per cabin; a per-group sleeper rate is
	// always a data-entry mistake.
	if cat == CategorySleeperTrain && unit == PerGroup {
		return nil, fmt.Errorf("sleeper_train rates must be per_person or per_cabin")
	}

	base, err := decimal.NewFromString(rj.BasePrice)
	if err != nil {
		return nil, fmt.Errorf("invalid base_price %q: %w", rj.BasePrice, err)
	}
	if base.IsNegative() {
		return nil, fmt.Errorf("base_price must not be negative")
	}

	rate := &Rate{
		ID:        rj.ID,
		Name:      rj.Name,
		Category:  cat,
		Unit:      unit,
		Currency:  rj.Currency,
		BasePrice: base,
	}
	if rate.Currency == "" {
		rate.Currency = "EUR"
	}

	for i, sj := range rj.Seasons {
		from, err := time.Parse(dateLayout, sj.From)
		if err != nil {
			return nil, fmt.Errorf("season %d: invalid from date %q", i, sj.From)
		}
		to, err := time.Parse(dateLayout, sj.To)
		if err != nil {
			return nil, fmt.Errorf("season %d: invalid to date %q", i, sj.To)
		}
		if to.Before(from) {
			return nil, fmt.Errorf("season %d: window ends before it starts", i)
		}
		price, err := decimal.NewFromString(sj.Price)
		if err != nil {
			return nil, fmt.Errorf("season %d: invalid price %q", i, sj.Price)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("season %d: price must not be negative", i)
		}
		rate.Seasons = append(rate.Seasons, Season{From: from, To: to, Price: price})
	}

	return rate, nil
}

// ToJSON converts a Rate back to its JSON representation for storage.
func (r *Rate) ToJSON() RateJSON {
	rj := RateJSON{
		ID:        r.ID,
		Name:      r.Name,
		Category:  string(r.Category),
		Unit:      string(r.Unit),
		Currency:  r.Currency,
		BasePrice: r.BasePrice.String(),
	}
	for _, s := range r.Seasons {
		rj.Seasons = append(rj.Seasons, SeasonJSON{
			From:  s.From.Format(dateLayout),
			To:    s.To.Format(dateLayout),
			Price: s.Price.String(),
		})
	}
	return rj
}

// =============================================================================
// PRICE RESOLUTION
// =============================================================================

// UnitPrice returns the per-unit price effective on a date: the first
// season window containing the date, else the base price.
func (r *Rate) UnitPrice(date time.Time) decimal.Decimal {
	for _, s := range r.Seasons {
		if !date.Before(s.From) && !date.After(s.To) {
			return s.Price
		}
	}
	return r.BasePrice
}

// PriceFor resolves the full price for a service on a date. per_person
// rates scale with the traveler count; per_group and per_cabin are flat.
func (r *Rate) PriceFor(date time.Time, travelers int) decimal.Decimal {
	unit := r.UnitPrice(date)
	if r.Unit == PerPerson {
		if travelers < 1 {
			travelers = 1
		}
		return engine.Round2(unit.Mul(decimal.NewFromInt(int64(travelers))))
	}
	return engine.Round2(unit)
}

// ResolveCost applies the cost mode: auto derives from the rate sheet,
// manual keeps the staff-entered figure.
func ResolveCost(mode CostMode, rate *Rate, date time.Time, travelers int, manualCost decimal.Decimal) decimal.Decimal {
	if mode == CostModeManual || rate == nil {
		return engine.Round2(manualCost)
	}
	return rate.PriceFor(date, travelers)
}
