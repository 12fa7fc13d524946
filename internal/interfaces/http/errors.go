package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/sales-insight/internal/aggregation"
	"github.com/garyjia/sales-insight/internal/application/service"
	"github.com/garyjia/sales-insight/internal/spreadsheet"
)

// DuplicateDetails is the payload of a 409 for an already imported file
type DuplicateDetails struct {
	ExistingImportID string `json:"existingImportId"`
	FileHash         string `json:"fileHash"`
	PeriodMonth      int    `json:"periodMonth"`
	PeriodYear       int    `json:"periodYear"`
}

// writeError maps service errors onto status codes
func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	var (
		parseErr  *spreadsheet.ParseError
		dupErr    *service.DuplicateImportError
		strictErr *service.StrictValidationError
	)

	switch {
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: parseErr.Error()})
	case errors.As(err, &dupErr):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   "file already imported",
			Details: DuplicateDetails{
				ExistingImportID: dupErr.ExistingImportID,
				FileHash:         dupErr.FileHash,
				PeriodMonth:      dupErr.Period.Month,
				PeriodYear:       dupErr.Period.Year,
			},
		})
	case errors.As(err, &strictErr):
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   strictErr.Error(),
			Details: strictErr.Report,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrAlreadyExists):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, aggregation.ErrInvalidGranularity),
		errors.Is(err, aggregation.ErrInvalidPeriod):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Request failed",
			"operation", op,
			"location_id", locationID(c),
			"error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   op + " failed",
		})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}
