package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryFashion           Category = "FASHION"
	CategoryBeauty            Category = "BEAUTY"
	CategorySports            Category = "SPORTS"
	CategoryElectronics       Category = "ELECTRONICS"
	CategoryHomeInterior      Category = "HOME_INTERIOR"
	CategoryHouseholdSupplies Category = "HOUSEHOLD_SUPPLIES"
	CategoryKitchenware       Category = "KITCHENWARE"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFashion, CategoryBeauty, CategorySports, CategoryElectronics,
		CategoryHomeInterior, CategoryHouseholdSupplies, CategoryKitchenware:
		return true
	}
	return false
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    Category        `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
