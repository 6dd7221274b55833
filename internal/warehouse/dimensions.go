// Package warehouse defines the star-schema domain model: the six
// dimension entities, the sales fact, and the OLTP staging record.
//
// Surrogate keys (ID fields) are storage-generated identities and are never
// derived from business data. Natural keys identify a dimension member in
// the source domain and are unique within each dimension table.
package warehouse

import (
	"fmt"
	"time"
)

// Dimension enumerates the fixed set of dimension tables.
//
// Operations that used to dispatch on a free-form dimension name (list a
// dimension, rank by an entity type) select a variant from this set via
// exhaustive matching; an unrecognized name is an explicit error, never a
// silent no-op.
type Dimension int

const (
	DimRegion Dimension = iota
	DimManager
	DimSupplier
	DimCategory
	DimProduct
	DimDate
)

// ParseDimension maps an external dimension name to its variant.
func ParseDimension(name string) (Dimension, error) {
	switch name {
	case "region":
		return DimRegion, nil
	case "manager":
		return DimManager, nil
	case "supplier":
		return DimSupplier, nil
	case "category":
		return DimCategory, nil
	case "product":
		return DimProduct, nil
	case "date":
		return DimDate, nil
	default:
		return 0, fmt.Errorf("unknown dimension %q", name)
	}
}

// String returns the external name of the dimension.
func (d Dimension) String() string {
	switch d {
	case DimRegion:
		return "region"
	case DimManager:
		return "manager"
	case DimSupplier:
		return "supplier"
	case DimCategory:
		return "category"
	case DimProduct:
		return "product"
	case DimDate:
		return "date"
	default:
		return fmt.Sprintf("dimension(%d)", int(d))
	}
}

// Region is the geography dimension. Natural key: (RegionName, City).
type Region struct {
	ID         int64  `json:"id"`
	RegionName string `json:"region_name"`
	City       string `json:"city"`
}

// Name renders the combined display name used in listings.
func (r Region) Name() string { return r.RegionName + " - " + r.City }

// Manager is the sales-manager dimension. Natural key: Name.
type Manager struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Supplier is the supplier dimension. Natural key: Name.
// Country is descriptive only and not part of the key.
type Supplier struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// Category is the product-category dimension. Natural key: Name.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is the product dimension. Natural key: BusinessID.
// CategoryID references dim_category and must be resolved before insert.
type Product struct {
	ID         int64  `json:"id"`
	BusinessID int64  `json:"business_id"`
	Name       string `json:"name"`
	Brand      string `json:"brand,omitempty"`
	CategoryID int64  `json:"category_id"`
}

// DateDim is the calendar dimension. Natural key: Date (calendar day).
// The derived attributes are computed once at insert time and never
// recomputed afterwards.
type DateDim struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"`
	Year      int       `json:"year"`
	Quarter   int       `json:"quarter"`
	Month     int       `json:"month"`
	Day       int       `json:"day"`
	MonthName string    `json:"month_name"`
	DayName   string    `json:"day_name"`
}

// DateKey is the canonical string form of a calendar day, used as the
// natural-key representation in lookup maps and storage.
const DateKeyLayout = "2006-01-02"

// DateParts derives the calendar attributes for a day. The quarter is
// integer((month-1)/3)+1; names are English month and weekday names.
func DateParts(t time.Time) DateDim {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return DateDim{
		Date:      day,
		Year:      day.Year(),
		Quarter:   (int(day.Month())-1)/3 + 1,
		Month:     int(day.Month()),
		Day:       day.Day(),
		MonthName: day.Month().String(),
		DayName:   day.Weekday().String(),
	}
}

// Key returns the natural-key string of the calendar day.
func (d DateDim) Key() string { return d.Date.Format(DateKeyLayout) }

// DimMember is the uniform listing shape for any dimension.
type DimMember struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
