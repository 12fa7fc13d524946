// Package validation classifies extracted rows into blocking errors and
// informational warnings.
package validation

import (
	"fmt"
	"strings"

	"github.com/garyjia/sales-insight/internal/domain/entity"
)

// Validate checks an extraction. Warnings never make the report invalid.
func Validate(result *entity.ExtractionResult) *entity.ValidationReport {
	report := &entity.ValidationReport{
		Errors:   []entity.ValidationIssue{},
		Warnings: []entity.ValidationIssue{},
	}

	if result == nil || (len(result.Summary) == 0 && len(result.Detail) == 0) {
		report.Errors = append(report.Errors, entity.ValidationIssue{
			Code:    entity.IssueNoData,
			Message: "no data rows found in either the summary or the detail table",
		})
		return report
	}

	if len(result.Detail) == 0 {
		report.Warnings = append(report.Warnings, entity.ValidationIssue{
			Code:    entity.IssueNoDetailData,
			Message: "no per-dish detail rows found, only category totals will be imported",
			Table:   entity.TableDetail,
		})
	}

	for _, row := range result.Summary {
		if strings.TrimSpace(row.Category) == "" {
			report.Warnings = append(report.Warnings, issue(entity.IssueMissingCategory, entity.TableSummary, row.RowNumber, "category", "category is empty"))
		}
		checkAmounts(report, entity.TableSummary, row.RowNumber, row.RawQuantity, row.RawValue)
	}

	for _, row := range result.Detail {
		if strings.TrimSpace(row.DishName) == "" {
			report.Warnings = append(report.Warnings, issue(entity.IssueMissingDishName, entity.TableDetail, row.RowNumber, "dishName", "dish name is empty, the row will not be imported"))
		}
		if strings.TrimSpace(row.Category) == "" {
			report.Warnings = append(report.Warnings, issue(entity.IssueMissingCategory, entity.TableDetail, row.RowNumber, "category", "category is empty"))
		}
		checkAmounts(report, entity.TableDetail, row.RowNumber, row.RawQuantity, row.RawValue)
	}

	report.IsValid = len(report.Errors) == 0
	return report
}

func checkAmounts(report *entity.ValidationReport, table string, row int, qty, value float64) {
	if qty < 0 {
		report.Errors = append(report.Errors, issue(entity.IssueNegativeQty, table, row, "quantity",
			fmt.Sprintf("negative quantity %g", qty)))
	}
	if value < 0 {
		report.Errors = append(report.Errors, issue(entity.IssueNegativeValue, table, row, "totalValue",
			fmt.Sprintf("negative value %g", value)))
	}
}

func issue(code, table string, row int, field, msg string) entity.ValidationIssue {
	return entity.ValidationIssue{
		Code:    code,
		Message: msg,
		Table:   table,
		Row:     row,
		Field:   field,
	}
}
