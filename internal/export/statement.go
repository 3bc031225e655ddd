package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/academy-tuition/internal/models"
	"github.com/Spok95/academy-tuition/internal/tuition"
)

const (
	summarySheet  = "Summary"
	sessionsSheet = "Sessions"
)

// BuildStatement собирает книгу: лист Summary (поля начисления) и лист Sessions (занятия).
// Неоплачиваемые занятия выделены серым.
func BuildStatement(fee *models.TuitionFee, sessions []models.Session) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sessionsSheet); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	st, err := newSheetStyles(f)
	if err != nil {
		return nil, err
	}

	if err := writeSummary(f, st, fee); err != nil {
		return nil, err
	}
	if err := writeSessions(f, st, sessions); err != nil {
		return nil, err
	}

	for _, sh := range []string{summarySheet, sessionsSheet} {
		if err := formatTable(f, sh, st); err != nil {
			return nil, fmt.Errorf("format %s: %w", sh, err)
		}
	}
	return f, nil
}

func writeSummary(f *excelize.File, st *sheetStyles, fee *models.TuitionFee) error {
	end := ""
	if fee.PeriodEndDate != nil {
		end = tuition.DateKey(*fee.PeriodEndDate)
	}
	rows := [][]any{
		{"Field", "Value"},
		{"Class", fee.ClassName},
		{"Student", fee.StudentName},
		{"Billing month", fmt.Sprintf("%04d-%02d", fee.Year, fee.Month)},
		{"Period start", tuition.DateKey(fee.PeriodStartDate)},
		{"Period end", end},
		{"Billable sessions", fee.SessionsCount},
		{"Per-session fee", fee.PerSessionFee},
		{"Carryover from previous", fee.CarryoverFromPrev},
		{"Carryover to next", fee.CarryoverToNext},
		{"Amount", fee.Amount},
		{"Payment status", string(fee.PaymentStatus)},
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return err
	}
	// строки 8 и 11: деньги
	for _, row := range []int{8, 11} {
		if err := styleCell(f, summarySheet, 2, row, st.money); err != nil {
			return err
		}
	}
	return nil
}

func writeSessions(f *excelize.File, st *sheetStyles, sessions []models.Session) error {
	header := []any{"#", "Date", "Weekday", "Status", "Billable", "Replaces", "Note"}
	rows := [][]any{header}
	var muted []int
	for i, s := range sessions {
		billable := "yes"
		if !s.Status.Billable() {
			billable = "no"
			muted = append(muted, i+2)
		}
		var replaces any = ""
		if s.OriginalSessionID != nil {
			replaces = *s.OriginalSessionID
		}
		note := ""
		if s.Note != nil {
			note = *s.Note
		}
		rows = append(rows, []any{
			s.SessionNumber,
			tuition.DateKey(s.SessionDate),
			s.SessionDate.Weekday().String(),
			string(s.Status),
			billable,
			replaces,
			note,
		})
	}
	if err := writeRows(f, sessionsSheet, rows); err != nil {
		return err
	}
	for _, row := range muted {
		if err := styleRow(f, sessionsSheet, row, len(header), st.muted); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatement пишет выписку в w (xlsx).
func WriteStatement(w io.Writer, fee *models.TuitionFee, sessions []models.Session) error {
	f, err := BuildStatement(fee, sessions)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", r+1, err)
		}
	}
	return nil
}
