package lifecycle

import (
	"fmt"
	"slices"
	"strings"

	"readyparser/pkg/contracts/domain"
)

// Grouping selects the deduplication key of a bucket.
type Grouping string

const (
	// GroupByProductAndDate merges rows sharing product id and selected lifecycle date.
	GroupByProductAndDate Grouping = "product_date"
	// GroupByProduct merges every row of a product and keeps its first-seen date.
	GroupByProduct Grouping = "product"
)

// Groupings lists the accepted grouping modes; the first is the default.
var Groupings = []Grouping{GroupByProductAndDate, GroupByProduct}

// ParseGrouping resolves a grouping mode; an empty string selects GroupByProductAndDate.
func ParseGrouping(s string) (Grouping, error) {
	switch g := Grouping(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GroupByProductAndDate, nil
	case GroupByProductAndDate, GroupByProduct:
		return g, nil
	}
	return "", fmt.Errorf("unknown grouping %q", s)
}

// Bucket is one portfolio block of the report.
type Bucket struct {
	Portfolio Portfolio
	Rows      []domain.AssetRecord
}

// Label is the block header text.
func (b Bucket) Label() string { return b.Portfolio.Label() }

// PortfolioOptions controls classification output.
type PortfolioOptions struct {
	Target   domain.DateTarget
	Mode     domain.CustomerMode
	Grouping Grouping
}

// BuildPortfolio classifies the filtered records and aggregates every bucket.
// The result always holds one bucket per entry of Portfolios, in that order.
func BuildPortfolio(records []domain.AssetRecord, opts PortfolioOptions) []Bucket {
	members := make(map[Portfolio][]domain.AssetRecord, len(Portfolios))
	for _, r := range records {
		if p, ok := Classify(r); ok {
			members[p] = append(members[p], r)
		}
	}

	buckets := make([]Bucket, 0, len(Portfolios))
	for _, p := range Portfolios {
		b := Bucket{Portfolio: p}
		if !p.Placeholder() {
			b.Rows = Aggregate(members[p], opts)
		}
		buckets = append(buckets, b)
	}
	return buckets
}

type groupKey struct {
	productID string
	date      string
}

// Aggregate deduplicates one bucket. Quantities are summed; every other field keeps
// the first non-empty value in input order. Rows without a product id or target date
// have no key and are dropped. The result is sorted ascending by the target date.
func Aggregate(records []domain.AssetRecord, opts PortfolioOptions) []domain.AssetRecord {
	index := make(map[groupKey]int)
	var out []domain.AssetRecord

	for _, r := range records {
		date := r.LifecycleDate(opts.Target)
		if r.ProductID == "" || !date.Valid {
			continue
		}
		key := groupKey{productID: r.ProductID}
		if opts.Grouping != GroupByProduct {
			key.date = date.String()
		}
		if i, ok := index[key]; ok {
			out[i] = merge(out[i], r)
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}

	for i := range out {
		out[i].BusinessEntity = ""
		out[i].SubBusinessEntity = ""
		out[i].ProductType = ""
		if opts.Mode == domain.SingleCustomer {
			out[i].InstallSiteName = ""
		}
	}

	SortByDate(out, opts.Target)
	return out
}

// SortByDate orders rows ascending by the given lifecycle date, nulls last, with
// product id breaking ties. The sort is stable.
func SortByDate(rows []domain.AssetRecord, target domain.DateTarget) {
	slices.SortStableFunc(rows, func(a, b domain.AssetRecord) int {
		if c := a.LifecycleDate(target).Compare(b.LifecycleDate(target)); c != 0 {
			return c
		}
		return strings.Compare(a.ProductID, b.ProductID)
	})
}

func merge(acc, r domain.AssetRecord) domain.AssetRecord {
	acc.ItemQuantity += r.ItemQuantity
	acc.Coverage = firstString(acc.Coverage, r.Coverage)
	acc.ProductDescription = firstString(acc.ProductDescription, r.ProductDescription)
	acc.BusinessEntity = firstString(acc.BusinessEntity, r.BusinessEntity)
	acc.SubBusinessEntity = firstString(acc.SubBusinessEntity, r.SubBusinessEntity)
	acc.ProductType = firstString(acc.ProductType, r.ProductType)
	acc.InstallSiteName = firstString(acc.InstallSiteName, r.InstallSiteName)
	if acc.MajorMinor == "" {
		acc.MajorMinor = r.MajorMinor
	}
	for _, t := range domain.DateTargets {
		if !acc.LifecycleDate(t).Valid {
			acc = acc.SetLifecycleDate(t, r.LifecycleDate(t))
		}
	}
	return acc
}

func firstString(current, next string) string {
	if current != "" {
		return current
	}
	return next
}
