package catalog

import (
	"maps"

	"github.com/nao1215/carledger/internal/model"
)

// Rule maps titles to a category. A title matches when it contains every
// phrase in All and, if Any is non-empty, at least one phrase in Any.
// Matching is case-insensitive.
type Rule struct {
	Category model.Category `yaml:"category"`
	All      []string       `yaml:"all"`
	Any      []string       `yaml:"any,omitempty"`
}

// Floors maps a category to its minimum accepted price.
type Floors map[model.Category]float64

// QuantityMarkers are the pack-size markers that identify diorama sets.
var QuantityMarkers = []string{"4pcs", "2pcs", "4шт", "2шт"}

// DefaultRules returns the classification rules in evaluation order.
// Titles matching no rule fall into DefaultCategory.
func DefaultRules() []Rule {
	return []Rule{
		{Category: model.CategoryTeamTransport, All: []string{"team transport"}},
		{Category: model.CategoryDiorama, All: []string{"diorama"}, Any: append([]string(nil), QuantityMarkers...)},
		{Category: model.CategoryPremium, All: []string{"premium"}},
		{Category: model.CategoryRLC, All: []string{"rlc"}},
		{Category: model.CategorySuperTreasureHunt, All: []string{"super treasure hunt"}},
		{Category: model.CategoryMatchbox, All: []string{"matchbox"}},
		{Category: model.CategoryTreasureHunts, All: []string{"treasure hunt"}},
	}
}

// DefaultCategory is assigned when no rule matches.
const DefaultCategory = model.CategoryMainLine

// DefaultFloors returns the default price floor per category.
func DefaultFloors() Floors {
	return Floors{
		model.CategoryPremium:           500,
		model.CategoryRLC:               2000,
		model.CategorySuperTreasureHunt: 1500,
		model.CategoryDiorama:           1000,
		model.CategoryMatchbox:          150,
		model.CategoryTreasureHunts:     150,
		model.CategoryTeamTransport:     800,
		model.CategoryMainLine:          150,
	}
}

type compiledRule struct {
	category model.Category
	all      []string
	any      []string
}

// Classifier is a pure mapping from title to category and price floor.
type Classifier struct {
	rules  []compiledRule
	floors Floors
}

// NewClassifier creates a Classifier. Rules are evaluated in order and the
// first match wins. A category missing from floors has a floor of zero.
func NewClassifier(rules []Rule, floors Floors) *Classifier {
	c := &Classifier{
		rules:  make([]compiledRule, 0, len(rules)),
		floors: maps.Clone(floors),
	}
	if c.floors == nil {
		c.floors = Floors{}
	}
	for _, r := range rules {
		c.rules = append(c.rules, compiledRule{
			category: r.Category,
			all:      foldAll(r.All),
			any:      foldAll(r.Any),
		})
	}
	return c
}

// NewDefaultClassifier creates a Classifier with DefaultRules and DefaultFloors.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultRules(), DefaultFloors())
}

// Classify returns the category of title and its price floor.
func (c *Classifier) Classify(title string) (model.Category, float64) {
	t := fold(title)
	for _, r := range c.rules {
		if !containsAll(t, r.all) {
			continue
		}
		if len(r.any) > 0 && !containsAny(t, r.any) {
			continue
		}
		return r.category, c.floors[r.category]
	}
	return DefaultCategory, c.floors[DefaultCategory]
}
