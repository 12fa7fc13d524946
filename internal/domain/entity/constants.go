package entity

// Import status constants for SalesImport
const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusPartial    = "partial"
	ImportStatusFailed     = "failed"
)

// Match method constants for SalesDish
const (
	MatchMethodExisting = "existing"
	MatchMethodExact    = "exact"
	MatchMethodFuzzy    = "fuzzy"
	MatchMethodKeyword  = "keyword"
	MatchMethodManual   = "manual"
)

// Exclusion word types
const (
	ExclusionTypeDish     = "dish"
	ExclusionTypeCategory = "category"
)

// Dashboard granularities
const (
	GranularityMonth     = "mese"
	GranularityQuarter   = "trimestre"
	GranularityFourMonth = "quadrimestre"
	GranularityHalfYear  = "semestre"
	GranularityYear      = "anno"
	GranularityTotal     = "totale"
)

// Validation issue codes
const (
	IssueNoData          = "no_data"
	IssueNoDetailData    = "no_detail_data"
	IssueMissingCategory = "missing_category"
	IssueMissingDishName = "missing_dish_name"
	IssueNegativeQty     = "negative_quantity"
	IssueNegativeValue   = "negative_value"
	IssuePeriodExists    = "period_exists"
)

// Table names used in validation issues
const (
	TableSummary = "summary"
	TableDetail  = "detail"
)
