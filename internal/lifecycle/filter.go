package lifecycle

import (
	"time"

	"readyparser/pkg/contracts/domain"
)

// FilterOptions selects the records that enter the report.
type FilterOptions struct {
	Target            domain.DateTarget
	Start             time.Time
	End               time.Time
	IncludeMinorItems bool
}

// InWindow reports whether d lies strictly between start and end, compared on whole days.
// A null date is never inside a window.
func InWindow(d domain.NullDate, start, end time.Time) bool {
	if !d.Valid {
		return false
	}
	return d.Time.After(midnight(start)) && d.Time.Before(midnight(end))
}

// Filter returns the records whose target date lies inside the exclusive window,
// dropping items not flagged Major when minor items are excluded. The input slice
// is not modified.
func Filter(records []domain.AssetRecord, opts FilterOptions) []domain.AssetRecord {
	kept := make([]domain.AssetRecord, 0, len(records))
	for _, r := range records {
		if !InWindow(r.LifecycleDate(opts.Target), opts.Start, opts.End) {
			continue
		}
		if !opts.IncludeMinorItems && r.MajorMinor != domain.Major {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
