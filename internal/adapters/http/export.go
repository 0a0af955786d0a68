package httpadapter

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/veralend/loandocs/internal/core/ports"
)

const exportSheet = "Checklist"

func (rt *Router) exportChecklist(w http.ResponseWriter, r *http.Request) {
	loanID := r.PathValue("id")
	entries, err := rt.checklist.Checklist(r.Context(), loanID)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	f, err := buildChecklistWorkbook(entries)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "checklist-"+loanID+".xlsx"))
	if _, err := f.WriteTo(w); err != nil {
		rt.logger.Error("write checklist export",
			"request_id", requestIDFromContext(r.Context()),
			"loan_id", loanID,
			"error", err,
		)
	}
}

func buildChecklistWorkbook(entries []ports.ChecklistEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{"Requirement", "Category", "Required", "Completed", "Assigned documents"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for row, entry := range entries {
		values := []any{
			entry.Requirement.Name,
			string(entry.Requirement.Category),
			entry.Requirement.Required,
			entry.Completed,
			strings.Join(entry.AssignedIDs, ", "),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("write row %d: %w", row+2, err)
			}
		}
	}
	return f, nil
}
