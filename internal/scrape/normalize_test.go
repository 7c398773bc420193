package scrape

import (
	"testing"

	"dealradar-engine/internal/scrape/types"
)

func TestNormalizeSerumScenario(t *testing.T) {
	c := types.Candidate{
		Name:        "Sérum Vitamine C 30ml",
		PriceRaw:    "24,99€",
		OriginalRaw: "39,99€",
		Brand:       "The Ordinary",
		URL:         "https://www.nocibe.fr/p/serum-vitamine-c?utm_source=feed",
		Merchant:    "nocibe",
	}

	np, err := Normalize(c, "nocibe")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if np.DealPrice != 24.99 {
		t.Errorf("DealPrice = %v, want 24.99", np.DealPrice)
	}
	if np.OriginalPrice != 39.99 {
		t.Errorf("OriginalPrice = %v, want 39.99", np.OriginalPrice)
	}
	if np.VolumeValue != 30 || np.VolumeUnit != "ml" {
		t.Errorf("volume = %v %s, want 30 ml", np.VolumeValue, np.VolumeUnit)
	}
	if np.Slug != "nocibe-serum-vitamine-c-30ml" {
		t.Errorf("Slug = %q", np.Slug)
	}
	if np.DedupKey != "nocibe:https://www.nocibe.fr/p/serum-vitamine-c" {
		t.Errorf("DedupKey = %q", np.DedupKey)
	}
	if np.PricePerUnit == 0 {
		t.Error("PricePerUnit should be set when volume recognized")
	}
}

func TestNormalizeFailures(t *testing.T) {
	if _, err := Normalize(types.Candidate{Name: "   ", PriceRaw: "9,99"}, "nocibe"); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := Normalize(types.Candidate{Name: "Crème", PriceRaw: "n/a"}, "nocibe"); err == nil {
		t.Error("expected error for unparseable price")
	}
}

func TestNormalizeIgnoresBogusWasPrice(t *testing.T) {
	// a was-price at or below the deal price means "no discount"
	np, err := Normalize(types.Candidate{
		Name:        "Crème Mains 50g",
		PriceRaw:    "9,99",
		OriginalRaw: "5,00",
		URL:         "https://www.nocibe.fr/p/creme-mains",
	}, "nocibe")
	if err != nil {
		t.Fatal(err)
	}
	if np.OriginalPrice != np.DealPrice {
		t.Errorf("OriginalPrice = %v, want %v", np.OriginalPrice, np.DealPrice)
	}
}

func TestNormalizeDedupStableAcrossNameDrift(t *testing.T) {
	url := "https://www.nocibe.fr/p/serum-vitamine-c"
	a, err := Normalize(types.Candidate{Name: "Sérum Vitamine C 30ml", PriceRaw: "24,99", URL: url}, "nocibe")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize(types.Candidate{Name: "SÉRUM  Vitamine C  30ml", PriceRaw: "24,99", URL: url + "?utm_campaign=promo"}, "nocibe")
	if err != nil {
		t.Fatal(err)
	}
	if a.DedupKey != b.DedupKey {
		t.Errorf("dedup keys differ: %q vs %q", a.DedupKey, b.DedupKey)
	}
}
