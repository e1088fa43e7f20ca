package catalog_test

import (
	"strings"
	"testing"
	"time"

	"github.com/warp/benefit-engine/benefit"
	"github.com/warp/benefit-engine/catalog"
)

func TestDefault_LoadsEmbeddedCatalog(t *testing.T) {
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	cards := c.Cards()
	if len(cards) == 0 {
		t.Fatal("embedded catalog is empty")
	}

	// Every template benefit must carry a known frequency; Load
	// validates, so reaching here means they all parsed.
	seen := map[benefit.Frequency]bool{}
	for _, card := range cards {
		for _, b := range card.Benefits {
			seen[benefit.Frequency(b.Frequency)] = true
		}
	}
	for _, freq := range []benefit.Frequency{benefit.Monthly, benefit.Quarterly, benefit.SemiAnnual, benefit.Annual} {
		if !seen[freq] {
			t.Errorf("embedded catalog exercises no %s benefit", freq)
		}
	}
}

func TestLoad_RejectsUnknownFrequency(t *testing.T) {
	doc := `
cards:
  - id: bad-card
    name: Bad Card
    benefits:
      - id: b1
        name: Weekly Thing
        value: 5
        frequency: weekly
`
	_, err := catalog.Load(strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected error for unknown frequency")
	}
}

func TestLoad_RejectsMissingCardID(t *testing.T) {
	doc := `
cards:
  - name: No ID Card
`
	if _, err := catalog.Load(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for missing card id")
	}
}

func TestInstantiate_BuildsCardAndBenefits(t *testing.T) {
	// GIVEN: The embedded catalog
	// WHEN: Instantiating a template mid-January
	// THEN: Every benefit starts available with a period containing today

	c, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	today := benefit.NewDate(2026, time.January, 15)
	now := time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)

	tmpl := c.Cards()[0]
	card, benefits, err := c.Instantiate(tmpl.ID, today, now)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	if card.Name != tmpl.Name || card.Issuer != tmpl.Issuer {
		t.Errorf("card = %s/%s, want template fields", card.Name, card.Issuer)
	}
	if card.ID == "" {
		t.Error("card id not generated")
	}
	if card.AnnualFee.IsPositive() {
		if card.FeeDue == nil || !card.FeeDue.Equal(today.AddYears(1)) {
			t.Errorf("fee due = %v, want one year out", card.FeeDue)
		}
	}

	if len(benefits) != len(tmpl.Benefits) {
		t.Fatalf("benefits = %d, want %d", len(benefits), len(tmpl.Benefits))
	}
	for _, b := range benefits {
		if b.CardID != card.ID {
			t.Errorf("benefit %s not linked to card", b.Name)
		}
		if b.Status != benefit.StatusAvailable {
			t.Errorf("benefit %s status = %s, want available", b.Name, b.Status)
		}
		if !b.Period().Contains(today) {
			t.Errorf("benefit %s period %s does not contain today", b.Name, b.Period())
		}
		if !b.NextReset.Equal(b.CurrentPeriodEnd.AddDays(1)) {
			t.Errorf("benefit %s next reset %s != end+1", b.Name, b.NextReset)
		}
	}
}

func TestInstantiate_DistinctIDsPerCall(t *testing.T) {
	c, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	today := benefit.NewDate(2026, time.January, 15)
	now := time.Now()

	tmpl := c.Cards()[0]
	first, _, _ := c.Instantiate(tmpl.ID, today, now)
	second, _, _ := c.Instantiate(tmpl.ID, today, now)
	if first.ID == second.ID {
		t.Error("two instantiations share a card id")
	}
}

func TestInstantiate_UnknownTemplate_NotFound(t *testing.T) {
	c, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = c.Instantiate("no-such-card", benefit.NewDate(2026, time.January, 15), time.Now())
	if !benefit.IsNotFound(err) {
		t.Fatalf("error = %v, want not-found", err)
	}
}
