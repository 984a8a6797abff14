package sync

import (
	"sort"
	"strings"

	"github.com/julienbonastre/scantosold/internal/calculator"
	"github.com/julienbonastre/scantosold/internal/ebay"
	"github.com/julienbonastre/scantosold/internal/inventory"
)

// Source tells where a merged row came from
type Source string

const (
	SourceBoth  Source = "both"
	SourceLocal Source = "local"
	SourceEbay  Source = "ebay"
)

// MergedItem is one SKU after reconciling local inventory with eBay
type MergedItem struct {
	SKU         string                       `json:"sku"`
	Title       string                       `json:"title"`
	Source      Source                       `json:"source"`
	CostCode    string                       `json:"cost_code"`
	Calculation calculator.ProfitCalculation `json:"calculation"`
	Item        *inventory.InventoryItem     `json:"item,omitempty"`
	Listing     *ebay.Listing                `json:"listing,omitempty"`
}

// Merge joins local items and eBay listings by SKU, trimmed and ignoring
// case. A local item always wins over the listing it matches. Listings with
// no local item become shadow rows valued at the listing price with no cost
// or shipping. The result is ordered by SKU.
func Merge(local []*inventory.InventoryItem, remote []ebay.Listing) []MergedItem {
	byKey := make(map[string]*MergedItem, len(local)+len(remote))
	var keys []string

	for _, item := range local {
		key := skuKey(item.SKU)
		if _, seen := byKey[key]; seen {
			continue
		}
		byKey[key] = &MergedItem{
			SKU:         item.SKU,
			Title:       item.Title,
			Source:      SourceLocal,
			CostCode:    item.CostCode(),
			Calculation: item.Calculation(),
			Item:        item,
		}
		keys = append(keys, key)
	}

	for i := range remote {
		listing := remote[i]
		key := skuKey(listing.SKU)
		if key == "" {
			continue
		}
		if merged, ok := byKey[key]; ok {
			if merged.Listing == nil {
				merged.Listing = &listing
				merged.Source = SourceBoth
			}
			continue
		}
		byKey[key] = &MergedItem{
			SKU:         strings.TrimSpace(listing.SKU),
			Title:       listing.Title,
			Source:      SourceEbay,
			CostCode:    calculator.CostCode(0),
			Calculation: calculator.Compute(listing.Price, 0, 0),
			Listing:     &listing,
		}
		keys = append(keys, key)
	}

	sort.Strings(keys)
	merged := make([]MergedItem, 0, len(keys))
	for _, key := range keys {
		merged = append(merged, *byKey[key])
	}
	return merged
}

// Count tallies merged rows per source
func Count(items []MergedItem) map[Source]int {
	counts := map[Source]int{SourceBoth: 0, SourceLocal: 0, SourceEbay: 0}
	for _, item := range items {
		counts[item.Source]++
	}
	return counts
}

func skuKey(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
