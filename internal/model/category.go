package model

// Category is the product line a listing item belongs to.
// Each category carries its own price floor in the classifier configuration.
type Category string

// Known categories, in the order the classifier evaluates them.
const (
	CategoryTeamTransport     Category = "Team Transport"
	CategoryDiorama           Category = "Diorama"
	CategoryPremium           Category = "Premium"
	CategoryRLC               Category = "RLC"
	CategorySuperTreasureHunt Category = "Super Treasure Hunt"
	CategoryMatchbox          Category = "Matchbox"
	CategoryTreasureHunts     Category = "Treasure Hunts"
	CategoryMainLine          Category = "MainLine"
)

// AllCategories returns every known category in classifier order.
func AllCategories() []Category {
	return []Category{
		CategoryTeamTransport,
		CategoryDiorama,
		CategoryPremium,
		CategoryRLC,
		CategorySuperTreasureHunt,
		CategoryMatchbox,
		CategoryTreasureHunts,
		CategoryMainLine,
	}
}

// String returns the ledger label of the category.
func (c Category) String() string {
	return string(c)
}
