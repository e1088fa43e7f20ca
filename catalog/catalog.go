/*
Package catalog is the read-only card template collaborator: a YAML
catalog of known cards and their template benefits, looked up by id
when the user adds a card. The engine never writes to it.
*/
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/benefit-engine/benefit"
)

//go:embed cards.yaml
var defaultCatalog []byte

// =============================================================================
// TEMPLATE TYPES
// =============================================================================

// BenefitTemplate describes one recurring credit a card ships with.
type BenefitTemplate struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Category  string  `yaml:"category"`
	Value     float64 `yaml:"value"`
	Frequency string  `yaml:"frequency"`
	ResetDay  int     `yaml:"reset_day,omitempty"`
}

// CardTemplate describes a known card product.
type CardTemplate struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Issuer    string            `yaml:"issuer"`
	AnnualFee float64           `yaml:"annual_fee"`
	Benefits  []BenefitTemplate `yaml:"benefits"`
}

type Catalog struct {
	cards map[string]CardTemplate
	order []string
}

// =============================================================================
// LOADING
// =============================================================================

// Load parses a catalog from YAML.
func Load(r io.Reader) (*Catalog, error) {
	var doc struct {
		Cards []CardTemplate `yaml:"cards"`
	}
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{cards: make(map[string]CardTemplate)}
	for _, card := range doc.Cards {
		if card.ID == "" {
			return nil, fmt.Errorf("catalog card %q missing id", card.Name)
		}
		for _, b := range card.Benefits {
			if !benefit.Frequency(b.Frequency).Valid() {
				return nil, fmt.Errorf("catalog card %s: benefit %s has unknown frequency %q", card.ID, b.ID, b.Frequency)
			}
		}
		c.cards[card.ID] = card
		c.order = append(c.order, card.ID)
	}
	return c, nil
}

// LoadFile loads a catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// =============================================================================
// LOOKUP
// =============================================================================

// Card looks up a template by id.
func (c *Catalog) Card(id string) (CardTemplate, bool) {
	t, ok := c.cards[id]
	return t, ok
}

// Cards returns all templates in catalog order.
func (c *Catalog) Cards() []CardTemplate {
	out := make([]CardTemplate, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.cards[id])
	}
	return out
}

// =============================================================================
// INSTANTIATION
// =============================================================================

// Instantiate builds a Card and one Benefit per template benefit, with
// current periods computed from today. The fee-due date anchors one
// year out from today; callers may override.
func (c *Catalog) Instantiate(templateID string, today benefit.Date, now time.Time) (*benefit.Card, []benefit.Benefit, error) {
	t, ok := c.Card(templateID)
	if !ok {
		return nil, nil, &benefit.NotFoundError{Kind: "card template", ID: templateID}
	}

	card := &benefit.Card{
		ID:        benefit.CardID(uuid.NewString()),
		Name:      t.Name,
		Issuer:    t.Issuer,
		AnnualFee: decimal.NewFromFloat(t.AnnualFee),
		OpenedAt:  today,
		CreatedAt: now,
	}
	if card.AnnualFee.IsPositive() {
		due := today.AddYears(1)
		card.FeeDue = &due
	}

	benefits := make([]benefit.Benefit, 0, len(t.Benefits))
	for _, bt := range t.Benefits {
		freq := benefit.Frequency(bt.Frequency)
		period, next := benefit.ComputePeriod(freq, today, bt.ResetDay)
		benefits = append(benefits, benefit.Benefit{
			ID:                 benefit.BenefitID(uuid.NewString()),
			CardID:             card.ID,
			Name:               bt.Name,
			Category:           bt.Category,
			Value:              decimal.NewFromFloat(bt.Value),
			Frequency:          freq,
			ResetDay:           bt.ResetDay,
			Status:             benefit.StatusAvailable,
			CurrentPeriodStart: period.Start,
			CurrentPeriodEnd:   period.End,
			NextReset:          next,
			CreatedAt:          now,
		})
	}
	return card, benefits, nil
}
