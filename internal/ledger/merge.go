package ledger

import (
	"strings"
	"unicode/utf8"

	"github.com/nao1215/carledger/internal/identity"
)

// Group key prefixes keep SKU and composite identities apart.
const (
	groupSKU       = "sku:"
	groupComposite = "composite:"
)

// DuplicateGroup describes rows that were collapsed into one.
type DuplicateGroup struct {
	// Key is the group key ("sku:HYY72" or "composite:MainLine_HKG13_Red").
	Key string

	// Names are the member display names in row order.
	Names []string

	// Name is the display name chosen for the merged row.
	Name string
}

// MergeResult is the outcome of Merge.
type MergeResult struct {
	// Ledger is the merged ledger. The input ledger is not modified.
	Ledger *Ledger

	RowsBefore int
	RowsAfter  int

	// Groups is the number of distinct products found.
	Groups int

	// Duplicates lists every group with more than one member.
	Duplicates []DuplicateGroup

	// Unresolved are rows without any derivable identity. They are not part
	// of the merged ledger.
	Unresolved []*Row
}

// GroupKey returns the merge group of r in ledger l, or "" when no identity
// can be derived.
//
// In a SKU ledger the sku cell is used, then a SKU extracted from car_name,
// then the composite identity. Legacy ledgers use the composite identity
// only.
func GroupKey(l *Ledger, r *Row) string {
	if l.HasSKU {
		if sku := strings.ToUpper(strings.TrimSpace(r.SKU)); sku != "" {
			return groupSKU + sku
		}
		if sku, err := identity.ExtractSKU(r.Name); err == nil {
			return groupSKU + sku
		}
	}
	if strings.TrimSpace(r.Name) == "" {
		return ""
	}
	return groupComposite + identity.CompositeID(r.Category, r.Name)
}

type group struct {
	key     string
	members []*Row
}

// Merge collapses rows that share a group key.
//
// The merged row takes name, category and image from the member with the
// latest non-empty price; on equal dates the earlier row wins. Without any
// prices the longest name wins. A missing image falls back to the first
// member that has one. Each date takes the first non-empty cell in row
// order. Output rows follow the order of each group's first member.
func Merge(l *Ledger) *MergeResult {
	res := &MergeResult{
		Ledger:     New(l.HasSKU),
		RowsBefore: l.Len(),
	}
	res.Ledger.Extra = append([]string(nil), l.Extra...)
	for _, d := range l.dates {
		res.Ledger.AddDate(d)
	}

	var groups []*group
	byKey := make(map[string]*group)
	for _, r := range l.Rows {
		key := GroupKey(l, r)
		if key == "" {
			res.Unresolved = append(res.Unresolved, r)
			continue
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, r)
	}

	for _, g := range groups {
		merged := mergeGroup(l, g)
		res.Ledger.Rows = append(res.Ledger.Rows, merged)
		if len(g.members) > 1 {
			names := make([]string, len(g.members))
			for i, m := range g.members {
				names[i] = m.Name
			}
			res.Duplicates = append(res.Duplicates, DuplicateGroup{
				Key:   g.key,
				Names: names,
				Name:  merged.Name,
			})
		}
	}

	res.Groups = len(groups)
	res.RowsAfter = res.Ledger.Len()
	return res
}

func mergeGroup(l *Ledger, g *group) *Row {
	canon := canonical(g.members)
	out := canon.clone()
	out.Prices = make(map[string]string)

	if out.ImageURL == "" {
		for _, m := range g.members {
			if m.ImageURL != "" {
				out.ImageURL = m.ImageURL
				break
			}
		}
	}

	if l.HasSKU {
		out.SKU = ""
		for _, m := range g.members {
			if s := strings.TrimSpace(m.SKU); s != "" {
				out.SKU = s
				break
			}
		}
		if out.SKU == "" && strings.HasPrefix(g.key, groupSKU) {
			out.SKU = strings.TrimPrefix(g.key, groupSKU)
		}
	}

	for _, name := range l.Extra {
		if out.Extra[name] != "" {
			continue
		}
		for _, m := range g.members {
			if v := m.Extra[name]; v != "" {
				out.Extra[name] = v
				break
			}
		}
	}

	for _, d := range l.dates {
		for _, m := range g.members {
			if v := m.Prices[d]; v != "" {
				out.Prices[d] = v
				break
			}
		}
	}
	return out
}

// canonical picks the member whose name and image survive.
func canonical(members []*Row) *Row {
	var best *Row
	bestDate := ""
	for _, m := range members {
		if d := m.LatestDate(); d > bestDate {
			best, bestDate = m, d
		}
	}
	if best != nil {
		return best
	}

	best = members[0]
	for _, m := range members[1:] {
		if utf8.RuneCountInString(m.Name) > utf8.RuneCountInString(best.Name) {
			best = m
		}
	}
	return best
}
