package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/carledger/internal/catalog"
	"github.com/nao1215/carledger/internal/identity"
	"github.com/nao1215/carledger/internal/model"
)

// Rules bundles the rule tables used by the item steps.
type Rules struct {
	Filter     *catalog.Filter
	Classifier *catalog.Classifier
	Normalizer *catalog.Normalizer
	Extractor  *identity.Extractor

	// SkipCategories lists categories that are dropped after classification.
	SkipCategories map[model.Category]bool

	// RequireSKU rejects items without a SKU. When false, such items get a
	// composite key instead.
	RequireSKU bool
}

// DefaultRules returns the built-in rule tables with RequireSKU set.
func DefaultRules() Rules {
	return Rules{
		Filter:     catalog.NewFilter(catalog.DefaultVehicleKeywords(), catalog.DefaultIgnoreWords()),
		Classifier: catalog.NewDefaultClassifier(),
		Normalizer: catalog.NewDefaultNormalizer(),
		Extractor:  identity.NewExtractor(),
		RequireSKU: true,
	}
}

// Steps returns the item steps in processing order.
func Steps(r Rules) []Step {
	return []Step{
		&VehicleStep{filter: r.Filter},
		&IgnoreStep{filter: r.Filter},
		&ClassifyStep{classifier: r.Classifier},
		&CategorySkipStep{skip: r.SkipCategories},
		&PriceStep{},
		&ThresholdStep{},
		&NormalizeStep{normalizer: r.Normalizer},
		&IdentityStep{extractor: r.Extractor, requireSKU: r.RequireSKU},
	}
}

// NewItemPipeline returns a factory that builds a Pipeline with Steps(r).
func NewItemPipeline(r Rules, logger *slog.Logger) func() *Pipeline {
	steps := Steps(r)
	return func() *Pipeline {
		p := New(WithLogger(logger))
		p.AddSteps(steps...)
		return p
	}
}

// VehicleStep rejects titles without a vehicle keyword.
type VehicleStep struct {
	filter *catalog.Filter
}

// Name returns the step name.
func (s *VehicleStep) Name() string { return "vehicle" }

// Do executes the step.
func (s *VehicleStep) Do(_ context.Context, c *model.Candidate) error {
	if !s.filter.IsVehicle(c.Page.RawTitle) {
		return Skip(model.SkipNotVehicle, "%q", c.Page.RawTitle)
	}
	return nil
}

// IgnoreStep rejects titles containing an ignore word.
type IgnoreStep struct {
	filter *catalog.Filter
}

// Name returns the step name.
func (s *IgnoreStep) Name() string { return "ignore" }

// Do executes the step.
func (s *IgnoreStep) Do(_ context.Context, c *model.Candidate) error {
	if w := s.filter.IgnoredBy(c.Page.RawTitle); w != "" {
		return Skip(model.SkipIgnored, "%q contains %q", c.Page.RawTitle, w)
	}
	return nil
}

// ClassifyStep assigns category and price floor.
type ClassifyStep struct {
	classifier *catalog.Classifier
}

// Name returns the step name.
func (s *ClassifyStep) Name() string { return "classify" }

// Do executes the step.
func (s *ClassifyStep) Do(_ context.Context, c *model.Candidate) error {
	c.Category, c.Floor = s.classifier.Classify(c.Page.RawTitle)
	return nil
}

// CategorySkipStep rejects categories switched off in configuration.
type CategorySkipStep struct {
	skip map[model.Category]bool
}

// Name returns the step name.
func (s *CategorySkipStep) Name() string { return "category_skip" }

// Do executes the step.
func (s *CategorySkipStep) Do(_ context.Context, c *model.Candidate) error {
	if s.skip[c.Category] {
		return Skip(model.SkipCategorySkipped, "category %s", c.Category)
	}
	return nil
}

// PriceStep parses the buy price and the optional sell price.
type PriceStep struct{}

// Name returns the step name.
func (s *PriceStep) Name() string { return "price" }

// Do executes the step.
func (s *PriceStep) Do(_ context.Context, c *model.Candidate) error {
	price, err := catalog.ParsePrice(c.Page.RawPrice)
	if err != nil {
		return Skip(model.SkipBadPrice, "%v", err)
	}
	c.Price = price

	c.SellPrice = nil
	if c.Page.RawSellPrice != "" {
		if sell, err := catalog.ParsePrice(c.Page.RawSellPrice); err == nil {
			c.SellPrice = &sell
		}
	}
	return nil
}

// ThresholdStep rejects items priced below their category floor.
type ThresholdStep struct{}

// Name returns the step name.
func (s *ThresholdStep) Name() string { return "threshold" }

// Do executes the step.
func (s *ThresholdStep) Do(_ context.Context, c *model.Candidate) error {
	if c.Price < c.Floor {
		return Skip(model.SkipBelowFloor, "price %s below %s floor %s",
			model.FormatPrice(c.Price), c.Category, model.FormatPrice(c.Floor))
	}
	return nil
}

// NormalizeStep derives the display name.
type NormalizeStep struct {
	normalizer *catalog.Normalizer
}

// Name returns the step name.
func (s *NormalizeStep) Name() string { return "normalize" }

// Do executes the step.
func (s *NormalizeStep) Do(_ context.Context, c *model.Candidate) error {
	name, err := s.normalizer.Normalize(c.Page.RawTitle)
	if err != nil {
		return Skip(model.SkipEmptyName, "%v", err)
	}
	c.Name = name
	return nil
}

// IdentityStep assigns the product key.
type IdentityStep struct {
	extractor  *identity.Extractor
	requireSKU bool
}

// Name returns the step name.
func (s *IdentityStep) Name() string { return "identity" }

// Do executes the step.
func (s *IdentityStep) Do(_ context.Context, c *model.Candidate) error {
	key, err := s.extractor.Key(c.Page.RawTitle)
	if err == nil {
		c.Key = key
		return nil
	}
	if !errors.Is(err, identity.ErrNoIdentity) || s.requireSKU {
		return Skip(model.SkipMissingSKU, "%q", c.Page.RawTitle)
	}
	c.Key = identity.CompositeKey(string(c.Category), c.Name)
	return nil
}
