// Package report renders learner progress as a spreadsheet.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"foundry-course-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	progressSheet = "Progress"
	summarySheet  = "Summary"
)

var (
	progressHeader = []interface{}{"User", "Item", "Completed", "Tries", "Last seen"}
	summaryHeader  = []interface{}{"User", "Items seen", "Items completed"}
)

// WriteProgress writes one row per progress record plus a per-user summary sheet.
func WriteProgress(w io.Writer, records []domain.ProgressRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(progressSheet, "A1", &progressHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	type totals struct{ seen, completed int }
	byUser := make(map[string]*totals)
	for i, rec := range records {
		row := []interface{}{rec.UserID, rec.SubModuleID, rec.Completed, rec.Tries, rec.LastSeenAt.UTC().Format(time.RFC3339)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(progressSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}

		t, ok := byUser[rec.UserID]
		if !ok {
			t = &totals{}
			byUser[rec.UserID] = t
		}
		t.seen++
		if rec.Completed {
			t.completed++
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)
	for i, u := range users {
		row := []interface{}{u, byUser[u].seen, byUser[u].completed}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
