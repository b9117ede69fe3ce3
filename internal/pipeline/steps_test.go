package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/carledger/internal/model"
)

func runItem(t *testing.T, r Rules, page model.ProductPage) (*model.Candidate, error) {
	t.Helper()

	c := model.NewCandidate(page, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	err := NewItemPipeline(r, nil)().Execute(context.Background(), c)
	return c, err
}

func skipReason(t *testing.T, err error) model.SkipReason {
	t.Helper()

	var se *SkipError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SkipError, got %v", err)
	}
	return se.Reason
}

// TestItemPipelineAccepts tests a fully valid item.
func TestItemPipelineAccepts(t *testing.T) {
	t.Parallel()

	c, err := runItem(t, DefaultRules(), model.ProductPage{
		URL:          "https://shop.example/p/1",
		RawTitle:     "Машинка Базова Hot Wheels Nissan (BNR32) Skyline HYY72 Red",
		RawPrice:     "250 грн",
		RawSellPrice: "300 грн",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Category != model.CategoryMainLine {
		t.Errorf("category = %q", c.Category)
	}
	if c.Price != 250 {
		t.Errorf("price = %v", c.Price)
	}
	if c.SellPrice == nil || *c.SellPrice != 300 {
		t.Errorf("sell price = %v", c.SellPrice)
	}
	if c.Name != "Nissan (BNR32) Skyline HYY72 Red" {
		t.Errorf("name = %q", c.Name)
	}
	if c.Key != model.SKUKey("HYY72") {
		t.Errorf("key = %s", c.Key)
	}
}

// TestItemPipelineRejects tests each rejection reason.
func TestItemPipelineRejects(t *testing.T) {
	t.Parallel()

	skipPremium := DefaultRules()
	skipPremium.SkipCategories = map[model.Category]bool{model.CategoryPremium: true}

	tests := []struct {
		name  string
		rules Rules
		page  model.ProductPage
		want  model.SkipReason
	}{
		{
			name:  "not a vehicle",
			rules: DefaultRules(),
			page:  model.ProductPage{RawTitle: "Lego Technic HYY72", RawPrice: "999"},
			want:  model.SkipNotVehicle,
		},
		{
			name:  "ignore word",
			rules: DefaultRules(),
			page:  model.ProductPage{RawTitle: "Hot Wheels Track Set HYY72", RawPrice: "999"},
			want:  model.SkipIgnored,
		},
		{
			name:  "skipped category",
			rules: skipPremium,
			page:  model.ProductPage{RawTitle: "Premium Hot Wheels Skyline HYY72", RawPrice: "999"},
			want:  model.SkipCategorySkipped,
		},
		{
			name:  "bad price",
			rules: DefaultRules(),
			page:  model.ProductPage{RawTitle: "Hot Wheels Skyline HYY72", RawPrice: "немає"},
			want:  model.SkipBadPrice,
		},
		{
			name:  "mainline below floor",
			rules: DefaultRules(),
			page:  model.ProductPage{RawTitle: "Hot Wheels Skyline HYY72", RawPrice: "149.99"},
			want:  model.SkipBelowFloor,
		},
		{
			name:  "rlc below its own floor",
			rules: DefaultRules(),
			page:  model.ProductPage{RawTitle: "Hot Wheels RLC Datsun HYY72", RawPrice: "1999"},
			want:  model.SkipBelowFloor,
		},
		{
			name:  "empty name",
			rules: DefaultRules(),
			page:  model.ProductPage{RawTitle: "Hot Wheels", RawPrice: "500"},
			want:  model.SkipEmptyName,
		},
		{
			name:  "missing sku",
			rules: DefaultRules(),
			page:  model.ProductPage{RawTitle: "Hot Wheels Custom Design Car", RawPrice: "500"},
			want:  model.SkipMissingSKU,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := runItem(t, tt.rules, tt.page)
			if got := skipReason(t, err); got != tt.want {
				t.Errorf("reason = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestIdentityStepComposite tests the composite fallback when SKUs are not
// required.
func TestIdentityStepComposite(t *testing.T) {
	t.Parallel()

	r := DefaultRules()
	r.RequireSKU = false

	c, err := runItem(t, r, model.ProductPage{RawTitle: "Hot Wheels Custom Design Car", RawPrice: "500"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Key != model.CompositeKey("MainLine_Custom Design Car") {
		t.Errorf("key = %s", c.Key)
	}
}

// TestStepsOrder tests the processing order of the default steps.
func TestStepsOrder(t *testing.T) {
	t.Parallel()

	p := NewItemPipeline(DefaultRules(), nil)()
	want := []string{"vehicle", "ignore", "classify", "category_skip", "price", "threshold", "normalize", "identity"}
	got := p.StepNames()
	if len(got) != len(want) {
		t.Fatalf("expected %d steps, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestPriceStepInvalidSellPrice tests that an unparsable sell price is
// dropped without rejecting the item.
func TestPriceStepInvalidSellPrice(t *testing.T) {
	t.Parallel()

	c := &model.Candidate{Page: model.ProductPage{RawPrice: "200", RawSellPrice: "—"}}
	if err := (&PriceStep{}).Do(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.SellPrice != nil {
		t.Errorf("expected nil sell price, got %v", *c.SellPrice)
	}
}
