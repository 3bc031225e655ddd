package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/academy-tuition/internal/models"
)

func TestBuildStatement(t *testing.T) {
	end := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)
	closureID := int64(7)
	reason := "spring break"
	orig := int64(3)
	fee := &models.TuitionFee{
		ID: 1, ClassName: "Piano A", StudentName: "Kim Minji", Year: 2024, Month: 3,
		PeriodStartDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), PeriodEndDate: &end,
		SessionsCount: 4, PerSessionFee: 25000, Amount: 100000, PaymentStatus: models.PaymentPending,
	}
	sessions := []models.Session{
		{SessionNumber: 1, SessionDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Status: models.StatusScheduled},
		{SessionNumber: 2, SessionDate: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), Status: models.StatusClosure, ClosureID: &closureID, Note: &reason},
		{SessionNumber: 3, SessionDate: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), Status: models.StatusScheduled, OriginalSessionID: &orig},
	}

	var buf bytes.Buffer
	if err := WriteStatement(&buf, fee, sessions); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sessionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("ожидали 4 строки (заголовок + 3), получили %d", len(rows))
	}
	if rows[2][1] != "2024-03-13" || rows[2][3] != "closure" || rows[2][4] != "no" || rows[2][6] != reason {
		t.Fatalf("строка выходного: %v", rows[2])
	}
	if rows[3][5] != "3" {
		t.Fatalf("ссылка на заменяемое занятие: %v", rows[3])
	}

	amount, err := f.GetCellValue(summarySheet, "B11", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatal(err)
	}
	if amount != "100000" {
		t.Fatalf("сумма %q", amount)
	}
}

func TestBuildStatementFilename(t *testing.T) {
	got := BuildStatementFilename("Kim/Minji", "Piano A", 2024, 3)
	if got != "Tuition 2024-03 Piano A Kim_Minji.xlsx" {
		t.Fatalf("получили %q", got)
	}
}

func TestColumnWidths(t *testing.T) {
	rows := [][]string{{"#", "Note"}, {"1", strings.Repeat("x", 100)}}
	got := columnWidths(rows, 2)
	if got[0] != minColWidth || got[1] != maxColWidth {
		t.Fatalf("получили %v", got)
	}
}

func TestBuildStatement_Styles(t *testing.T) {
	fee := &models.TuitionFee{Year: 2024, Month: 3, Amount: 100000, PerSessionFee: 25000}
	sessions := []models.Session{
		{SessionNumber: 1, SessionDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Status: models.StatusScheduled},
		{SessionNumber: 2, SessionDate: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), Status: models.StatusCancelled},
	}
	f, err := BuildStatement(fee, sessions)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	shown, err := f.GetCellValue(summarySheet, "B11")
	if err != nil {
		t.Fatal(err)
	}
	if shown != "100,000" {
		t.Fatalf("формат суммы: %q", shown)
	}
	billable, _ := f.GetCellStyle(sessionsSheet, "A2")
	cancelled, _ := f.GetCellStyle(sessionsSheet, "A3")
	if billable == cancelled {
		t.Fatal("неоплачиваемое занятие не выделено")
	}
}
