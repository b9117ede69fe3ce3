package identity

import (
	"errors"
	"testing"

	"github.com/nao1215/carledger/internal/model"
)

// TestExtractSKU tests the ordered SKU rules.
func TestExtractSKU(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "dual code yields right-hand code", title: "HW GRN86/JBM19 Fast Car", want: "JBM19"},
		{name: "parenthesised code ignored", title: "Nissan (BNR32) Skyline HYY72 Red", want: "HYY72"},
		{name: "last code wins", title: "Porsche 911 GT3 HKG13 HTB38", want: "HTB38"},
		{name: "lower case title", title: "nissan skyline hyy72", want: "HYY72"},
		{name: "quoted title", title: `  "Mazda RX-7 JBC51"  `, want: "JBC51"},
		{name: "code at start", title: "HCW75 Batmobile", want: "HCW75"},
		{name: "dual code beats later single code", title: "GRN86/JBM19 Fast Car HKG13", want: "JBM19"},
		{name: "code right after parentheses", title: "Nissan Skyline(BNR32)HYY72 Red", want: "HYY72"},
		{name: "code right before parentheses", title: "Nissan Skyline HYY72(BNR32) Red", want: "HYY72"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ExtractSKU(tt.title)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractSKU(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

// TestExtractSKUNoIdentity tests titles without any code.
func TestExtractSKUNoIdentity(t *testing.T) {
	t.Parallel()

	titles := []string{
		"Custom Design Car",
		"",
		"   ",
		"Batmobile (HCW75)",
	}

	for _, title := range titles {
		_, err := ExtractSKU(title)
		if !errors.Is(err, ErrNoIdentity) {
			t.Errorf("ExtractSKU(%q): expected ErrNoIdentity, got %v", title, err)
		}
	}
}

// TestExtractorCustomRules tests that rules run in the given order.
func TestExtractorCustomRules(t *testing.T) {
	t.Parallel()

	var calls []string
	e := NewExtractor(
		Rule{Name: "first", Extract: func(string) string { calls = append(calls, "first"); return "" }},
		Rule{Name: "second", Extract: func(string) string { calls = append(calls, "second"); return "X99" }},
		Rule{Name: "third", Extract: func(string) string { calls = append(calls, "third"); return "Y11" }},
	)

	key, err := e.Key("anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != model.SKUKey("X99") {
		t.Errorf("expected sku:X99, got %s", key)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("unexpected rule calls %v", calls)
	}
}

// TestCompositeID tests the legacy composite identity.
func TestCompositeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category string
		title    string
		want     string
	}{
		{name: "code and color", category: "MainLine", title: "Nissan Skyline HKG13 Red", want: "MainLine_HKG13_Red"},
		{name: "two word color", category: "Premium", title: "Porsche 911 GRN86 Dark Blue", want: "Premium_GRN86_Dark Blue"},
		{name: "dual code kept whole", category: "MainLine", title: "Fast Car GRN86/JBM19 Red", want: "MainLine_GRN86/JBM19_Red"},
		{name: "no color", category: "MainLine", title: "Batmobile HCW75", want: "MainLine_HCW75_Unknown"},
		{name: "no code falls back to title", category: "MainLine", title: "Custom Design Car", want: "MainLine_Custom Design Car"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := CompositeID(tt.category, tt.title); got != tt.want {
				t.Errorf("CompositeID(%q, %q) = %q, want %q", tt.category, tt.title, got, tt.want)
			}
		})
	}
}

// TestIdentitySpacesAreSeparate tests that a title without a code has a
// composite key but no SKU key.
func TestIdentitySpacesAreSeparate(t *testing.T) {
	t.Parallel()

	title := "Custom Design Car"

	if _, err := NewExtractor().Key(title); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}

	key := CompositeKey("MainLine", title)
	if key.Scheme != model.SchemeComposite {
		t.Errorf("expected composite scheme, got %s", key.Scheme)
	}
	if key.IsSKU() {
		t.Error("composite key must not be a SKU key")
	}
}
