package entity

import "time"

// SalesImport represents one imported POS export for a location and month
type SalesImport struct {
	ID               string     `json:"id"`
	LocationID       string     `json:"location_id"`
	PeriodMonth      int        `json:"period_month"`
	PeriodYear       int        `json:"period_year"`
	FileName         string     `json:"file_name"`
	FileSize         int64      `json:"file_size"`
	FileHash         string     `json:"file_hash"`
	FileFormat       string     `json:"file_format"`
	TotalCategories  int        `json:"total_categories"`
	TotalDishes      int        `json:"total_dishes"`
	TotalQuantity    float64    `json:"total_quantity"`
	TotalValueCents  int64      `json:"total_value_cents"`
	Covers           float64    `json:"covers"`
	CoversValueCents int64      `json:"covers_value_cents"`
	Status           string     `json:"status"`
	ErrorCount       int        `json:"error_count"`
	WarningCount     int        `json:"warning_count"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Period returns the import's reporting period
func (i *SalesImport) Period() Period {
	return Period{Month: i.PeriodMonth, Year: i.PeriodYear}
}

// SalesCategory is a category subtotal snapshot belonging to one import
type SalesCategory struct {
	ID                 string    `json:"id"`
	ImportID           string    `json:"import_id"`
	CategoryName       string    `json:"category_name"`
	CategoryNormalized string    `json:"category_normalized"`
	Quantity           float64   `json:"quantity"`
	TotalValueCents    int64     `json:"total_value_cents"`
	PeriodMonth        int       `json:"period_month"`
	PeriodYear         int       `json:"period_year"`
	CreatedAt          time.Time `json:"created_at"`
}

// SalesDish is the cumulative catalog entry for a normalized dish name
type SalesDish struct {
	ID                       string    `json:"id"`
	DishName                 string    `json:"dish_name"`
	DishNameOriginal         string    `json:"dish_name_original"`
	CategoryGestionale       string    `json:"category_gestionale"`
	RecipeID                 *string   `json:"recipe_id"`
	IsLinked                 bool      `json:"is_linked"`
	MatchMethod              *string   `json:"match_method"`
	MatchConfidence          *float64  `json:"match_confidence"`
	TotalQuantitySold        float64   `json:"total_quantity_sold"`
	TotalValueGeneratedCents int64     `json:"total_value_generated_cents"`
	FirstSeenDate            time.Time `json:"first_seen_date"`
	LastSeenDate             time.Time `json:"last_seen_date"`
	TotalImports             int       `json:"total_imports"`
	IsArchived               bool      `json:"is_archived"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// SetLink records a recipe link, or clears it when recipeID is nil
func (d *SalesDish) SetLink(recipeID *string, method string, confidence float64) {
	if recipeID == nil {
		d.RecipeID = nil
		d.MatchMethod = nil
		d.MatchConfidence = nil
		d.IsLinked = false
		return
	}
	id := *recipeID
	m := method
	c := confidence
	d.RecipeID = &id
	d.MatchMethod = &m
	d.MatchConfidence = &c
	d.IsLinked = true
}

// Method returns the match method or an empty string when unlinked
func (d *SalesDish) Method() string {
	if d.MatchMethod == nil {
		return ""
	}
	return *d.MatchMethod
}

// SalesDishData is one fact row per dish and import
type SalesDishData struct {
	ID              string    `json:"id"`
	DishID          string    `json:"dish_id"`
	ImportID        string    `json:"import_id"`
	RecipeID        *string   `json:"recipe_id"`
	Quantity        float64   `json:"quantity"`
	UnitPriceCents  int64     `json:"unit_price_cents"`
	TotalValueCents int64     `json:"total_value_cents"`
	PeriodMonth     int       `json:"period_month"`
	PeriodYear      int       `json:"period_year"`
	CreatedAt       time.Time `json:"created_at"`
}

// ExclusionWord drops matching rows from future imports
type ExclusionWord struct {
	ID             string    `json:"id"`
	Word           string    `json:"word"`
	WordNormalized string    `json:"word_normalized"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at"`
}

// Recipe is a read-only entry of the recipe catalog
type Recipe struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// RecipeSale mirrors a linked fact for downstream recipe costing
type RecipeSale struct {
	ID              string    `json:"id"`
	RecipeID        string    `json:"recipe_id"`
	DishDataID      string    `json:"dish_data_id"`
	ImportID        string    `json:"import_id"`
	Quantity        float64   `json:"quantity"`
	TotalValueCents int64     `json:"total_value_cents"`
	SaleDate        time.Time `json:"sale_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// DishFact is a fact row joined with its dish, used by the dashboard
type DishFact struct {
	DishID          string  `json:"dish_id"`
	DishName        string  `json:"dish_name"`
	Category        string  `json:"category"`
	RecipeID        *string `json:"recipe_id"`
	Quantity        float64 `json:"quantity"`
	TotalValueCents int64   `json:"total_value_cents"`
	PeriodMonth     int     `json:"period_month"`
	PeriodYear      int     `json:"period_year"`
}

// Period is a reporting month
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Valid reports whether the period names a real calendar month
func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year >= 2000 && p.Year <= 2100
}

// Date returns the first day of the period in UTC
func (p Period) Date() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}
