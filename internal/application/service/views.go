package service

import (
	"time"

	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/normalize"
)

// ImportView is the API shape of a SalesImport with money in currency units
type ImportView struct {
	ID              string     `json:"id"`
	LocationID      string     `json:"location_id"`
	PeriodMonth     int        `json:"period_month"`
	PeriodYear      int        `json:"period_year"`
	FileName        string     `json:"file_name"`
	FileSize        int64      `json:"file_size"`
	FileFormat      string     `json:"file_format"`
	TotalCategories int        `json:"total_categories"`
	TotalDishes     int        `json:"total_dishes"`
	TotalQuantity   float64    `json:"total_quantity"`
	TotalValue      float64    `json:"total_value"`
	Covers          float64    `json:"covers"`
	Status          string     `json:"status"`
	ErrorCount      int        `json:"error_count"`
	WarningCount    int        `json:"warning_count"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	ImportDate      time.Time  `json:"import_date"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func toImportView(imp *entity.SalesImport) ImportView {
	return ImportView{
		ID:              imp.ID,
		LocationID:      imp.LocationID,
		PeriodMonth:     imp.PeriodMonth,
		PeriodYear:      imp.PeriodYear,
		FileName:        imp.FileName,
		FileSize:        imp.FileSize,
		FileFormat:      imp.FileFormat,
		TotalCategories: imp.TotalCategories,
		TotalDishes:     imp.TotalDishes,
		TotalQuantity:   imp.TotalQuantity,
		TotalValue:      normalize.FromCents(imp.TotalValueCents),
		Covers:          imp.Covers,
		Status:          imp.Status,
		ErrorCount:      imp.ErrorCount,
		WarningCount:    imp.WarningCount,
		ErrorMessage:    imp.ErrorMessage,
		ImportDate:      imp.CreatedAt,
		CompletedAt:     imp.CompletedAt,
	}
}

// DishView is the API shape of a catalog dish
type DishView struct {
	ID                  string    `json:"id"`
	DishName            string    `json:"dish_name"`
	DishNameOriginal    string    `json:"dish_name_original"`
	CategoryGestionale  string    `json:"category_gestionale"`
	RecipeID            *string   `json:"recipe_id"`
	IsLinked            bool      `json:"is_linked"`
	MatchMethod         *string   `json:"match_method"`
	MatchConfidence     *float64  `json:"match_confidence"`
	TotalQuantitySold   float64   `json:"total_quantity_sold"`
	TotalValueGenerated float64   `json:"total_value_generated"`
	FirstSeenDate       string    `json:"first_seen_date"`
	LastSeenDate        string    `json:"last_seen_date"`
	TotalImports        int       `json:"total_imports"`
	IsArchived          bool      `json:"is_archived"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toDishView(d *entity.SalesDish) DishView {
	return DishView{
		ID:                  d.ID,
		DishName:            d.DishName,
		DishNameOriginal:    d.DishNameOriginal,
		CategoryGestionale:  d.CategoryGestionale,
		RecipeID:            d.RecipeID,
		IsLinked:            d.IsLinked,
		MatchMethod:         d.MatchMethod,
		MatchConfidence:     d.MatchConfidence,
		TotalQuantitySold:   normalize.Round(d.TotalQuantitySold, 3),
		TotalValueGenerated: normalize.FromCents(d.TotalValueGeneratedCents),
		FirstSeenDate:       d.FirstSeenDate.Format("2006-01-02"),
		LastSeenDate:        d.LastSeenDate.Format("2006-01-02"),
		TotalImports:        d.TotalImports,
		IsArchived:          d.IsArchived,
		UpdatedAt:           d.UpdatedAt,
	}
}
