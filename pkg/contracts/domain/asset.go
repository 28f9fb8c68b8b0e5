package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateTarget names one of the four lifecycle-date columns of an install-base export.
// The string value is the column header used by the vendor export and by the report.
type DateTarget string

const (
	LastDateOfSupport        DateTarget = "Last Date of Support"
	EndOfSoftwareMaintenance DateTarget = "End of Software Maintenance Date"
	EndOfProductSale         DateTarget = "End of Product Sale Date"
	LastRenewal              DateTarget = "Last Renewal Date"
)

// DateTargets lists every lifecycle-date column in report sheet order.
var DateTargets = []DateTarget{
	LastDateOfSupport,
	EndOfSoftwareMaintenance,
	EndOfProductSale,
	LastRenewal,
}

// Valid reports whether t is one of the four known lifecycle dates.
func (t DateTarget) Valid() bool {
	for _, known := range DateTargets {
		if t == known {
			return true
		}
	}
	return false
}

// ParseDateTarget resolves a lifecycle-date column name, ignoring case and surrounding space.
func ParseDateTarget(s string) (DateTarget, error) {
	s = strings.TrimSpace(s)
	for _, known := range DateTargets {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown lifecycle date %q", s)
}

// CustomerMode selects whether a report covers one customer or several.
type CustomerMode string

const (
	SingleCustomer    CustomerMode = "single customer"
	MultipleCustomers CustomerMode = "multiple customers"
)

// CustomerModes lists the accepted report modes.
var CustomerModes = []CustomerMode{SingleCustomer, MultipleCustomers}

// Valid reports whether m is a known customer mode.
func (m CustomerMode) Valid() bool {
	return m == SingleCustomer || m == MultipleCustomers
}

// ParseCustomerMode resolves a customer mode, ignoring case and surrounding space.
func ParseCustomerMode(s string) (CustomerMode, error) {
	s = strings.TrimSpace(s)
	for _, known := range CustomerModes {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown file type %q", s)
}

// MajorMinor is the per-item priority flag of the export.
type MajorMinor string

const (
	Major MajorMinor = "Major"
	Minor MajorMinor = "Minor"
)

// NullDate is a calendar date that may be absent.
type NullDate struct {
	Time  time.Time
	Valid bool
}

// DateOf builds a valid NullDate at midnight UTC.
func DateOf(year int, month time.Month, day int) NullDate {
	return NullDate{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// Format renders the date with a Go layout; a null date renders as "".
func (d NullDate) Format(layout string) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(layout)
}

// Equal reports whether both dates are null or both hold the same day.
func (d NullDate) Equal(o NullDate) bool {
	if d.Valid != o.Valid {
		return false
	}
	return !d.Valid || d.Time.Equal(o.Time)
}

// Compare orders dates ascending with null dates last.
func (d NullDate) Compare(o NullDate) int {
	switch {
	case !d.Valid && !o.Valid:
		return 0
	case !d.Valid:
		return 1
	case !o.Valid:
		return -1
	}
	return d.Time.Compare(o.Time)
}

func (d NullDate) String() string {
	if !d.Valid {
		return "<null>"
	}
	return d.Time.Format(time.DateOnly)
}

// AssetRecord is one line item of a vendor install-base export.
// Empty strings stand for missing text values.
type AssetRecord struct {
	ItemQuantity       int        `json:"item_quantity"`
	Coverage           string     `json:"coverage,omitempty"`
	ProductID          string     `json:"product_id"`
	ProductDescription string     `json:"product_description,omitempty"`
	EndOfProductSale   NullDate   `json:"-"`
	LastRenewal        NullDate   `json:"-"`
	EndOfSWMaintenance NullDate   `json:"-"`
	LastDateOfSupport  NullDate   `json:"-"`
	BusinessEntity     string     `json:"business_entity,omitempty"`
	SubBusinessEntity  string     `json:"sub_business_entity,omitempty"`
	ProductType        string     `json:"product_type,omitempty"`
	MajorMinor         MajorMinor `json:"major_minor,omitempty"`
	InstallSiteName    string     `json:"install_site_name,omitempty"`
}

// LifecycleDate returns the value of the given lifecycle-date column.
func (r AssetRecord) LifecycleDate(t DateTarget) NullDate {
	switch t {
	case LastDateOfSupport:
		return r.LastDateOfSupport
	case EndOfSoftwareMaintenance:
		return r.EndOfSWMaintenance
	case EndOfProductSale:
		return r.EndOfProductSale
	case LastRenewal:
		return r.LastRenewal
	}
	return NullDate{}
}

// SetLifecycleDate returns a copy of r with the given lifecycle-date column replaced.
func (r AssetRecord) SetLifecycleDate(t DateTarget, d NullDate) AssetRecord {
	switch t {
	case LastDateOfSupport:
		r.LastDateOfSupport = d
	case EndOfSoftwareMaintenance:
		r.EndOfSWMaintenance = d
	case EndOfProductSale:
		r.EndOfProductSale = d
	case LastRenewal:
		r.LastRenewal = d
	}
	return r
}
