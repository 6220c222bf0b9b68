package entity

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Fallback resource names used when resource-level detail is unavailable.
// Rows carrying one of these labels sort after regular resource rows within
// their service group.
const (
	NoResourceBreakdownForService = "No resource breakdown available for this service type"
	NoResourceBreakdownForWindow  = "No resource breakdown available for this time window"

	degradedResourcePrefix = "Resource breakdown unavailable: "
)

// GlobalRegion labels line items that are not tied to any AWS region.
const GlobalRegion = "global"

// DegradedResourceName builds the fallback label for rows produced after
// resource-level querying was disabled mid-run, naming the specific cause.
func DegradedResourceName(reason string) string {
	return degradedResourcePrefix + reason
}

// IsFallbackResourceName reports whether name is one of the fallback labels
// rather than a real resource identifier.
func IsFallbackResourceName(name string) bool {
	return name == NoResourceBreakdownForService ||
		name == NoResourceBreakdownForWindow ||
		strings.HasPrefix(name, degradedResourcePrefix)
}

// CostLineItem is one row of a cost report breakdown. Cost keeps the exact
// decimal string from aggregation; it is never rounded per line item.
type CostLineItem struct {
	ResourceName string `json:"resourceName"`
	ServiceName  string `json:"serviceName"`
	Region       string `json:"region"`
	Cost         string `json:"cost"`
}

// DecimalCost parses the line item's cost. A cost produced by the aggregator
// always parses; a zero value is returned for anything else.
func (i CostLineItem) DecimalCost() decimal.Decimal {
	d, err := decimal.NewFromString(i.Cost)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CostReport is the result of one aggregation run over a billing window.
// StartDate/EndDate form the half-open interval [StartDate, EndDate).
type CostReport struct {
	AccountID       string         `json:"accountId"`
	StartDate       string         `json:"startDate"`
	EndDate         string         `json:"endDate"`
	TotalCost       float64        `json:"totalCost"`
	CostsByResource []CostLineItem `json:"costsByResource"`
}

// ServiceCost represents a cost amount for a specific AWS service.
type ServiceCost struct {
	ServiceName string  `json:"service_name"`
	Cost        float64 `json:"cost"`
}

// ServiceCostReport is the simpler, service-level-only report variant.
type ServiceCostReport struct {
	AccountID      string        `json:"accountId"`
	StartDate      string        `json:"startDate"`
	EndDate        string        `json:"endDate"`
	TotalCost      float64       `json:"totalCost"`
	CostsByService []ServiceCost `json:"costsByService"`
}

// TotalLineItemCost sums every line item with decimal arithmetic.
func TotalLineItemCost(items []CostLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.DecimalCost())
	}
	return total
}

// SortLineItems orders a breakdown for presentation: items are grouped by
// service, groups ordered by their decimal total descending, and within each
// group regular resource rows precede fallback rows, each partition sorted by
// cost descending. Ties keep their aggregation order (the sort is stable).
func SortLineItems(items []CostLineItem) []CostLineItem {
	groups := lo.GroupBy(items, func(i CostLineItem) string { return i.ServiceName })

	// Group order starts from first appearance, not map iteration, so tied
	// totals come out identically on every run.
	services := make([]string, 0, len(groups))
	seen := make(map[string]bool, len(groups))
	for _, item := range items {
		if !seen[item.ServiceName] {
			seen[item.ServiceName] = true
			services = append(services, item.ServiceName)
		}
	}

	totals := make(map[string]decimal.Decimal, len(services))
	for svc, rows := range groups {
		totals[svc] = TotalLineItemCost(rows)
	}
	sort.SliceStable(services, func(a, b int) bool {
		return totals[services[a]].GreaterThan(totals[services[b]])
	})

	sorted := make([]CostLineItem, 0, len(items))
	for _, svc := range services {
		regular, fallback := lo.FilterReject(groups[svc], func(i CostLineItem, _ int) bool {
			return !IsFallbackResourceName(i.ResourceName)
		})
		sortByCostDesc(regular)
		sortByCostDesc(fallback)
		sorted = append(sorted, regular...)
		sorted = append(sorted, fallback...)
	}
	return sorted
}

func sortByCostDesc(items []CostLineItem) {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].DecimalCost().GreaterThan(items[b].DecimalCost())
	})
}
