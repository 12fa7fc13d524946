package entity

// SummaryRow is one per-category subtotal extracted from a spreadsheet
type SummaryRow struct {
	RowNumber   int     `json:"rowNumber"`
	Category    string  `json:"category"`
	Quantity    float64 `json:"quantity"`
	TotalValue  float64 `json:"totalValue"`
	RawQuantity float64 `json:"-"`
	RawValue    float64 `json:"-"`
}

// DetailRow is one per-dish line extracted from a spreadsheet.
// Quantity and value are clamped at zero; the Raw fields keep the signed
// numbers for validation.
type DetailRow struct {
	RowNumber   int     `json:"rowNumber"`
	DishName    string  `json:"dishName"`
	Category    string  `json:"category"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalValue  float64 `json:"totalValue"`
	RawQuantity float64 `json:"-"`
	RawValue    float64 `json:"-"`
}

// ExtractionMetadata describes the parsed file
type ExtractionMetadata struct {
	FileName       string   `json:"fileName"`
	FileSize       int64    `json:"fileSize"`
	FileHash       string   `json:"fileHash"`
	DetectedFormat string   `json:"detectedFormat"`
	SheetNames     []string `json:"sheetNames"`
	SheetUsed      string   `json:"sheetUsed"`
	HeaderRow      int      `json:"headerRow"`
	DetailHeader   int      `json:"detailHeaderRow,omitempty"`
	SummaryDerived bool     `json:"summaryDerived"`
	Covers         float64  `json:"covers"`
	CoversValue    float64  `json:"coversValue"`
}

// ExtractionResult holds both tables extracted from one file
type ExtractionResult struct {
	Summary  []SummaryRow       `json:"summaryTable"`
	Detail   []DetailRow        `json:"detailTable"`
	Metadata ExtractionMetadata `json:"metadata"`
}

// ValidationIssue is a row-level error or warning
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Table   string `json:"table,omitempty"`
	Row     int    `json:"row,omitempty"`
	Field   string `json:"field,omitempty"`
}

// ValidationReport is the outcome of validating an extraction
type ValidationReport struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// ExcludedRow records a detail row dropped by an exclusion word
type ExcludedRow struct {
	Row         DetailRow `json:"row"`
	MatchedWord string    `json:"matchedWord"`
	MatchedType string    `json:"matchedType"`
}
