//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/Spok95/academy-tuition/internal/db"
	"github.com/Spok95/academy-tuition/internal/models"
	"github.com/Spok95/academy-tuition/internal/testutil/testdb"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func ptrInt64(v int64) *int64    { return &v }
func ptrString(v string) *string { return &v }

func mustSeedFee(t *testing.T, dbx *sql.DB, className, studentName string) models.TuitionFee {
	t.Helper()
	ctx := context.Background()
	classID, err := db.CreateClass(ctx, dbx, models.Class{Name: className, MonthlyFee: 100000, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	studentID, err := db.CreateStudent(ctx, dbx, studentName)
	if err != nil {
		t.Fatal(err)
	}
	end := day(2024, 3, 27)
	return models.TuitionFee{
		ClassID:         classID,
		StudentID:       studentID,
		Year:            2024,
		Month:           3,
		ClassName:       className,
		StudentName:     studentName,
		PeriodStartDate: day(2024, 3, 4),
		PeriodEndDate:   &end,
		SessionsCount:   4,
		PerSessionFee:   25000,
		Amount:          100000,
		PaymentStatus:   models.PaymentPending,
	}
}

func TestInsertTuitionFeeIfAbsent_Duplicate(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	fee := mustSeedFee(t, h.DB, "Piano A", "Kim Minji")

	id, inserted, err := db.InsertTuitionFeeIfAbsent(ctx, h.DB, fee)
	if err != nil || !inserted || id == 0 {
		t.Fatalf("первая вставка: id=%d inserted=%v err=%v", id, inserted, err)
	}
	fee.Amount = 1
	id2, inserted, err := db.InsertTuitionFeeIfAbsent(ctx, h.DB, fee)
	if err != nil || inserted || id2 != 0 {
		t.Fatalf("повторная вставка: id=%d inserted=%v err=%v", id2, inserted, err)
	}

	got, err := db.FindTuitionFee(ctx, h.DB, fee.ClassID, fee.StudentID, 2024, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id || got.Amount != 100000 {
		t.Fatalf("существующее начисление изменено: %#v", got)
	}
	if got.PeriodEndDate == nil || !got.PeriodEndDate.Equal(day(2024, 3, 27)) {
		t.Fatalf("period_end_date: %v", got.PeriodEndDate)
	}

	if _, err := db.GetTuitionFee(ctx, h.DB, id+1000); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestInsertSessions_Numbering(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	fee := mustSeedFee(t, h.DB, "Piano A", "Kim Minji")
	var feeID int64
	err = db.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		id, _, err := db.InsertTuitionFeeIfAbsent(ctx, tx, fee)
		if err != nil {
			return err
		}
		feeID = id
		return db.InsertSessions(ctx, tx, id, []models.Session{
			{SessionNumber: 1, SessionDate: day(2024, 3, 4), Status: models.StatusScheduled},
			{SessionNumber: 2, SessionDate: day(2024, 3, 6), Status: models.StatusScheduled},
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	// дубль номера нарушает UNIQUE(tuition_fee_id, session_number)
	err = db.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		return db.InsertSessions(ctx, tx, feeID, []models.Session{
			{SessionNumber: 2, SessionDate: day(2024, 3, 11), Status: models.StatusScheduled},
		})
	})
	if !db.IsUniqueViolation(err) {
		t.Fatalf("ожидали unique violation, получили %v", err)
	}

	var added *models.Session
	err = db.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		if _, err := db.LockTuitionFee(ctx, tx, feeID); err != nil {
			return err
		}
		s, err := db.InsertSession(ctx, tx, models.Session{
			TuitionFeeID: feeID,
			SessionDate:  day(2024, 3, 11),
			Status:       models.StatusScheduled,
			Note:         ptrString("extra"),
		})
		added = s
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if added.SessionNumber != 3 || added.Note == nil || *added.Note != "extra" {
		t.Fatalf("получили %#v", added)
	}

	ss, err := db.ListSessions(ctx, h.DB, feeID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ss) != 3 || !ss[2].SessionDate.Equal(day(2024, 3, 11)) {
		t.Fatalf("получили %#v", ss)
	}
}

func TestListClosuresForClass(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	a, err := db.CreateClass(ctx, h.DB, models.Class{Name: "A", MonthlyFee: 1, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	b, err := db.CreateClass(ctx, h.DB, models.Class{Name: "B", MonthlyFee: 1, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []models.Closure{
		{Date: day(2024, 3, 1), Reason: ptrString("Independence Movement Day")},
		{Date: day(2024, 3, 13), ClassID: ptrInt64(a), Reason: ptrString("instructor away")},
		{Date: day(2024, 3, 13), ClassID: ptrInt64(b)},
		{Date: day(2024, 5, 5)},
	} {
		if _, err := db.CreateClosure(ctx, h.DB, c); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ListClosuresForClass(ctx, h.DB, a, day(2024, 3, 1), day(2024, 3, 31))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("ожидали 2 выходных, получили %#v", got)
	}
	if got[0].ClassID != nil || got[1].ClassID == nil || *got[1].ClassID != a {
		t.Fatalf("получили %#v", got)
	}
}
