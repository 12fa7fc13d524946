package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/exclusion"
	"github.com/garyjia/sales-insight/internal/matching"
	"github.com/garyjia/sales-insight/internal/normalize"
	"github.com/garyjia/sales-insight/internal/spreadsheet"
	"github.com/garyjia/sales-insight/internal/validation"
	"github.com/google/uuid"
)

const (
	previewSummaryRows = 10
	previewDetailRows  = 20
)

// Extractor turns an uploaded file into summary and detail tables
type Extractor interface {
	Extract(data []byte, fileName string) (*entity.ExtractionResult, error)
}

// Matcher links a dish to a recipe of the catalog, nil when unmatched
type Matcher interface {
	Match(dish matching.Candidate, catalog *matching.Catalog) *matching.Result
}

// ImportConfig holds import behaviour switches
type ImportConfig struct {
	StrictMode  bool
	KeepUploads bool
}

// Upload is one file submitted for preview or import
type Upload struct {
	FileName string
	Data     []byte
}

// ImportRequest describes one import call
type ImportRequest struct {
	LocationID string
	Period     entity.Period
	Upload     Upload
	Overwrite  bool
	Strict     *bool // nil falls back to ImportConfig.StrictMode
}

// SummaryPreview is the head of the summary table
type SummaryPreview struct {
	Rows      []entity.SummaryRow `json:"rows"`
	TotalRows int                 `json:"totalRows"`
}

// DetailPreview is the head of the detail table
type DetailPreview struct {
	Rows      []entity.DetailRow `json:"rows"`
	TotalRows int                `json:"totalRows"`
}

// Preview is what a file would import
type Preview struct {
	FileName     string                    `json:"fileName"`
	FileSize     int64                     `json:"fileSize"`
	Sheets       []string                  `json:"sheets"`
	SummaryTable SummaryPreview            `json:"summaryTable"`
	DetailTable  DetailPreview             `json:"detailTable"`
	Metadata     entity.ExtractionMetadata `json:"metadata"`
}

// PreviewResult pairs the preview with its validation report
type PreviewResult struct {
	Preview    Preview                  `json:"preview"`
	Validation *entity.ValidationReport `json:"validation"`
}

// ImportStats counts what an import wrote
type ImportStats struct {
	CategoriesImported int     `json:"categoriesImported"`
	DishesImported     int     `json:"dishesImported"`
	DishesNew          int     `json:"dishesNew"`
	DishesExisting     int     `json:"dishesExisting"`
	DishesMatched      int     `json:"dishesMatched"`
	DishesUnmatched    int     `json:"dishesUnmatched"`
	TotalQuantity      float64 `json:"totalQuantity"`
	TotalValue         float64 `json:"totalValue"`
	Covers             float64 `json:"covers"`
	ExcludedRows       int     `json:"excludedRows"`
}

// DishMatch reports the link state of one imported dish
type DishMatch struct {
	DishID     string   `json:"dishId"`
	DishName   string   `json:"dishName"`
	RecipeID   *string  `json:"recipeId"`
	RecipeName *string  `json:"recipeName"`
	Confidence *float64 `json:"confidence"`
	Method     *string  `json:"method"`
	Reasons    []string `json:"reasons"`
}

// ImportResult is the outcome of a successful import
type ImportResult struct {
	Success  bool                     `json:"success"`
	ImportID string                   `json:"importId"`
	Status   string                   `json:"status"`
	Period   entity.Period            `json:"period"`
	Stats    ImportStats              `json:"stats"`
	Matches  []DishMatch              `json:"matches"`
	Excluded []entity.ExcludedRow     `json:"excluded"`
	Errors   []entity.ValidationIssue `json:"errors"`
	Warnings []entity.ValidationIssue `json:"warnings"`
}

// ImportList is one page of imports
type ImportList struct {
	Imports []ImportView `json:"imports"`
	Total   int          `json:"total"`
	HasMore bool         `json:"hasMore"`
}

// ImportService previews, records and lists sales imports
type ImportService interface {
	// Preview extracts and validates a file without touching any store
	Preview(ctx context.Context, upload Upload) (*PreviewResult, error)

	// Import records a file for one location and month
	Import(ctx context.Context, req ImportRequest) (*ImportResult, error)

	ListImports(ctx context.Context, locationID string, limit, offset int) (*ImportList, error)

	// DeleteImport removes an import with its facts and categories.
	// Catalog totals are left as they are; RecomputeTotals repairs them.
	DeleteImport(ctx context.Context, locationID, importID string) error
}

type importServiceImpl struct {
	stores    port.StoreProvider
	extractor Extractor
	matcher   Matcher
	files     port.FileStorage
	cfg       ImportConfig
	logger    Logger
}

// NewImportService creates a new ImportService. files may be nil when
// uploads are not archived.
func NewImportService(
	stores port.StoreProvider,
	extractor Extractor,
	matcher Matcher,
	files port.FileStorage,
	cfg ImportConfig,
	logger Logger,
) ImportService {
	return &importServiceImpl{
		stores:    stores,
		extractor: extractor,
		matcher:   matcher,
		files:     files,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *importServiceImpl) Preview(ctx context.Context, upload Upload) (*PreviewResult, error) {
	result, err := s.extractor.Extract(upload.Data, upload.FileName)
	if err != nil {
		s.logger.Error("Failed to extract preview",
			"error", err,
			"file_name", upload.FileName)
		return nil, err
	}

	report := validation.Validate(result)

	summary := result.Summary
	if len(summary) > previewSummaryRows {
		summary = summary[:previewSummaryRows]
	}
	detail := result.Detail
	if len(detail) > previewDetailRows {
		detail = detail[:previewDetailRows]
	}

	s.logger.Info("Preview generated",
		"file_name", upload.FileName,
		"summary_rows", len(result.Summary),
		"detail_rows", len(result.Detail),
		"valid", report.IsValid)

	return &PreviewResult{
		Preview: Preview{
			FileName:     upload.FileName,
			FileSize:     int64(len(upload.Data)),
			Sheets:       result.Metadata.SheetNames,
			SummaryTable: SummaryPreview{Rows: summary, TotalRows: len(result.Summary)},
			DetailTable:  DetailPreview{Rows: detail, TotalRows: len(result.Detail)},
			Metadata:     result.Metadata,
		},
		Validation: report,
	}, nil
}

func (s *importServiceImpl) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if !req.Period.Valid() {
		return nil, invalid("period %d/%d is not a valid month", req.Period.Month, req.Period.Year)
	}

	store, release, err := s.stores.Acquire(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}
	defer release()

	extraction, err := s.extractor.Extract(req.Upload.Data, req.Upload.FileName)
	if err != nil {
		s.recordFailure(ctx, store, req, spreadsheet.Hash(req.Upload.Data), err)
		return nil, err
	}

	report := validation.Validate(extraction)
	for _, issue := range report.Errors {
		if issue.Code == entity.IssueNoData {
			err := &spreadsheet.ParseError{FileName: req.Upload.FileName, Err: spreadsheet.ErrNoData}
			s.recordFailure(ctx, store, req, extraction.Metadata.FileHash, err)
			return nil, err
		}
	}

	unlock := s.stores.LockImports(req.LocationID)
	defer unlock()

	hash := extraction.Metadata.FileHash
	existing, err := store.Imports().GetByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("check duplicate import: %w", err)
	}
	if existing != nil && !req.Overwrite {
		s.logger.Info("Duplicate import rejected",
			"location_id", req.LocationID,
			"file_hash", hash,
			"existing_import_id", existing.ID)
		return nil, &DuplicateImportError{
			FileHash:         hash,
			ExistingImportID: existing.ID,
			Period:           existing.Period(),
		}
	}

	strict := s.cfg.StrictMode
	if req.Strict != nil {
		strict = *req.Strict
	}
	if strict && !report.IsValid {
		s.logger.Info("Import rejected in strict mode",
			"location_id", req.LocationID,
			"file_name", req.Upload.FileName,
			"errors", len(report.Errors))
		return nil, &StrictValidationError{Report: report}
	}

	words, err := store.Exclusions().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exclusion words: %w", err)
	}
	kept, excluded := exclusion.NewFilter(words).Apply(extraction.Detail)

	recipes, err := store.Recipes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	rec := &recorder{
		store:   store,
		matcher: s.matcher,
		catalog: matching.NewCatalog(recipes),
	}
	input := recordInput{
		locationID: req.LocationID,
		period:     req.Period,
		upload:     req.Upload,
		extraction: extraction,
		report:     report,
		kept:       kept,
		replace:    existing,
	}

	var result *ImportResult
	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = rec.record(ctx, input)
		return err
	})
	if err != nil {
		s.logger.Error("Import failed",
			"error", err,
			"location_id", req.LocationID,
			"file_name", req.Upload.FileName)
		return nil, fmt.Errorf("record import: %w", err)
	}

	result.Excluded = excluded
	result.Stats.ExcludedRows = len(excluded)

	s.archive(ctx, req, hash, extraction.Metadata.DetectedFormat)

	s.logger.Info("Import recorded",
		"location_id", req.LocationID,
		"import_id", result.ImportID,
		"status", result.Status,
		"dishes", result.Stats.DishesImported,
		"matched", result.Stats.DishesMatched,
		"excluded", len(excluded),
		"overwrite", existing != nil)

	return result, nil
}

// recordFailure writes a failed audit row. Its own errors are only logged
// so the caller still sees the parse error.
func (s *importServiceImpl) recordFailure(ctx context.Context, store port.Store, req ImportRequest, hash string, cause error) {
	now := time.Now().UTC()
	imp := &entity.SalesImport{
		ID:           uuid.NewString(),
		LocationID:   req.LocationID,
		PeriodMonth:  req.Period.Month,
		PeriodYear:   req.Period.Year,
		FileName:     req.Upload.FileName,
		FileSize:     int64(len(req.Upload.Data)),
		FileHash:     hash,
		Status:       entity.ImportStatusFailed,
		ErrorCount:   1,
		ErrorMessage: cause.Error(),
		CreatedAt:    now,
		CompletedAt:  &now,
	}
	if format, err := spreadsheet.DetectFormat(req.Upload.FileName, req.Upload.Data); err == nil {
		imp.FileFormat = format
	}

	if err := store.Imports().Create(ctx, imp); err != nil {
		s.logger.Error("Failed to record failed import",
			"error", err,
			"location_id", req.LocationID,
			"file_name", req.Upload.FileName)
		return
	}
	s.logger.Info("Failed import recorded",
		"location_id", req.LocationID,
		"import_id", imp.ID,
		"reason", cause.Error())
}

func (s *importServiceImpl) archive(ctx context.Context, req ImportRequest, hash, format string) {
	if !s.cfg.KeepUploads || s.files == nil {
		return
	}
	name := path.Join(req.LocationID, hash+"."+format)
	if err := s.files.Save(ctx, name, req.Upload.Data); err != nil {
		s.logger.Error("Failed to archive upload",
			"error", err,
			"location_id", req.LocationID,
			"path", name)
	}
}

func (s *importServiceImpl) ListImports(ctx context.Context, locationID string, limit, offset int) (*ImportList, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return nil, err
	}
	defer release()

	imports, err := store.Imports().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	total, err := store.Imports().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count imports: %w", err)
	}

	views := make([]ImportView, 0, len(imports))
	for _, imp := range imports {
		views = append(views, toImportView(imp))
	}
	return &ImportList{
		Imports: views,
		Total:   total,
		HasMore: offset+len(views) < total,
	}, nil
}

func (s *importServiceImpl) DeleteImport(ctx context.Context, locationID, importID string) error {
	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return err
	}
	defer release()

	imp, err := store.Imports().GetByID(ctx, importID)
	if err != nil {
		return fmt.Errorf("get import: %w", err)
	}
	if imp == nil {
		return notFound("import", importID)
	}

	if err := store.Imports().Delete(ctx, importID); err != nil {
		s.logger.Error("Failed to delete import",
			"error", err,
			"location_id", locationID,
			"import_id", importID)
		return fmt.Errorf("delete import: %w", err)
	}

	s.logger.Info("Import deleted",
		"location_id", locationID,
		"import_id", importID,
		"file_name", imp.FileName)
	return nil
}

// IsParseError reports whether err means the upload could not be read
func IsParseError(err error) bool {
	var pe *spreadsheet.ParseError
	return errors.As(err, &pe)
}

func roundQuantity(v float64) float64 {
	return normalize.Round(v, 3)
}
