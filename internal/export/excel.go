// Package export renders issue records into a spreadsheet document. The
// dispatcher and the ops API only supply rows; the workbook layout lives here.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"
)

const sheetName = "issues"

var columns = []string{
	"id", "created_at", "reporter_display_name", "area", "subarea", "equipment_path",
	"description", "status", "resolved_at", "resolver_display_name",
	"reporter_name_snapshot", "reporter_role_snapshot",
}

// Renderer produces a binary spreadsheet from issue rows.
type Renderer interface {
	Render(issues []domain.Issue) ([]byte, error)
}

// Excel renders an .xlsx workbook with one "issues" sheet.
type Excel struct{}

func (Excel) Render(issues []domain.Issue) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := setRow(f, 1, header); err != nil {
		return nil, err
	}
	for i, issue := range issues {
		row := []any{
			issue.ID, issue.CreatedAt, issue.ReporterDisplayName, issue.Area, issue.Subarea,
			issue.EquipmentPath, issue.Description, issue.Status,
			derefStr(issue.ResolvedAt), derefStr(issue.ResolverDisplayName),
			issue.ReporterNameSnapshot, issue.ReporterRoleSnapshot,
		}
		if err := setRow(f, i+2, row); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheetName, cell, &values)
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
