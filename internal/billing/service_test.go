//go:build testutil
// +build testutil

package billing_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/academy-tuition/internal/billing"
	"github.com/Spok95/academy-tuition/internal/db"
	"github.com/Spok95/academy-tuition/internal/models"
	"github.com/Spok95/academy-tuition/internal/testutil/testdb"
	"github.com/Spok95/academy-tuition/internal/tuition"
)

// 2024-03-04 понедельник
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

type fixture struct {
	db       *sql.DB
	svc      *billing.Service
	classID  int64
	students []int64
}

var shared *testdb.DBHandle

func TestMain(m *testing.M) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "testdb:", err)
		os.Exit(1)
	}
	shared = h
	code := m.Run()
	h.Close()
	os.Exit(code)
}

// setup: чистая схема, класс Piano A (Пн/Ср, 200000 за 8 занятий) и три ученика.
func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	if err := shared.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	h := shared

	spm := 8
	classID, err := db.CreateClass(ctx, h.DB, models.Class{Name: "Piano A", MonthlyFee: 200000, SessionsPerMonth: &spm, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, dow := range []time.Weekday{time.Monday, time.Wednesday} {
		if _, err := db.AddWeeklySlot(ctx, h.DB, models.WeeklySlot{ClassID: classID, DayOfWeek: dow, StartTime: "16:00", EndTime: "17:00"}); err != nil {
			t.Fatal(err)
		}
	}
	var students []int64
	for _, name := range []string{"Kim Minji", "Lee Jisoo", "Park Hana"} {
		id, err := db.CreateStudent(ctx, h.DB, name)
		if err != nil {
			t.Fatal(err)
		}
		students = append(students, id)
	}

	svc := billing.New(h.DB, zap.NewNop(), billing.Options{
		HorizonDays: tuition.DefaultHorizonDays,
		Align:       tuition.AlignConfig{WindowDays: tuition.DefaultAlignWindowDays, MaxCandidates: tuition.DefaultAlignCandidates},
	})
	return &fixture{db: h.DB, svc: svc, classID: classID, students: students}
}

func mustClosure(t *testing.T, f *fixture, date time.Time, classID *int64) int64 {
	t.Helper()
	reason := "closed"
	id, err := db.CreateClosure(context.Background(), f.db, models.Closure{Date: date, ClassID: classID, Reason: &reason})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func mustMaterialize(t *testing.T, f *fixture, target int) *tuition.Result {
	t.Helper()
	ctx := context.Background()
	res, err := f.svc.Generate(ctx, f.classID, monday, target)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Materialize(ctx, f.classID, f.students, res, monday); err != nil {
		t.Fatal(err)
	}
	return res
}

func feeOf(t *testing.T, f *fixture, studentID int64) *models.TuitionFee {
	t.Helper()
	fee, err := db.FindTuitionFee(context.Background(), f.db, f.classID, studentID, 2024, 3)
	if err != nil {
		t.Fatal(err)
	}
	return fee
}

func sessionsOf(t *testing.T, f *fixture, feeID int64) []models.Session {
	t.Helper()
	ss, err := db.ListSessions(context.Background(), f.db, feeID)
	if err != nil {
		t.Fatal(err)
	}
	return ss
}

func TestGenerate_WithClosure(t *testing.T) {
	f := setup(t)

	closureID := mustClosure(t, f, monday.AddDate(0, 0, 9), &f.classID) // вторая среда
	res, err := f.svc.Generate(context.Background(), f.classID, monday, 4)
	if err != nil {
		t.Fatal(err)
	}
	if res.BillableCount != 4 || res.ClosureDays != 1 || len(res.Sessions) != 5 {
		t.Fatalf("получили %+v", res)
	}
	if res.Sessions[3].ClosureID == nil || *res.Sessions[3].ClosureID != closureID {
		t.Fatalf("нет ссылки на выходной: %+v", res.Sessions[3])
	}
	if res.PerSessionFee != 25000 || res.CalculatedAmount != 100000 {
		t.Fatalf("fee=%d amount=%d", res.PerSessionFee, res.CalculatedAmount)
	}
}

func TestGenerate_NoSchedule(t *testing.T) {
	f := setup(t)

	empty, err := db.CreateClass(context.Background(), f.db, models.Class{Name: "Empty", MonthlyFee: 100000, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Generate(context.Background(), empty, monday, 4); !errors.Is(err, tuition.ErrNoSchedule) {
		t.Fatalf("ожидали ErrNoSchedule, получили %v", err)
	}
	if _, err := f.svc.Generate(context.Background(), 999999, monday, 4); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestGenerate_AlignsToSiblingClass(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sibling, err := db.CreateClass(ctx, f.db, models.Class{Name: "Violin", MonthlyFee: 100000, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.AddWeeklySlot(ctx, f.db, models.WeeklySlot{ClassID: sibling, DayOfWeek: time.Wednesday, StartTime: "18:00", EndTime: "19:00"}); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.Generate(ctx, sibling, monday, 2) // 06.03 и 13.03
	if err != nil {
		t.Fatal(err)
	}
	sibEnd := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	res.PeriodEndDate = sibEnd
	if _, err := f.svc.Materialize(ctx, sibling, f.students[:1], res, monday); err != nil {
		t.Fatal(err)
	}

	// у Piano A четвёртое занятие 13.03, соседний класс закрывается 15.03
	got, err := f.svc.Generate(ctx, f.classID, monday, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !got.PeriodEndDate.Equal(sibEnd) {
		t.Fatalf("ожидали выравнивание на %s, получили %s", tuition.DateKey(sibEnd), tuition.DateKey(got.PeriodEndDate))
	}
}

func TestMaterialize_Idempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, f.classID, monday, 4)
	if err != nil {
		t.Fatal(err)
	}
	first, err := f.svc.Materialize(ctx, f.classID, f.students, res, monday)
	if err != nil {
		t.Fatal(err)
	}
	if first.Created != 3 || first.Skipped != 0 {
		t.Fatalf("первый запуск: %+v", first)
	}
	second, err := f.svc.Materialize(ctx, f.classID, f.students, res, monday)
	if err != nil {
		t.Fatal(err)
	}
	if second.Created != 0 || second.Skipped != 3 {
		t.Fatalf("второй запуск: %+v", second)
	}

	fee := feeOf(t, f, f.students[0])
	ss := sessionsOf(t, f, fee.ID)
	if len(ss) != 4 {
		t.Fatalf("ожидали 4 занятия, получили %d", len(ss))
	}
	for i, s := range ss {
		if s.SessionNumber != i+1 {
			t.Fatalf("нумерация с дырой: %+v", ss)
		}
	}
	if fee.Amount != 100000 || fee.SessionsCount != 4 || fee.PerSessionFee != 25000 {
		t.Fatalf("начисление %+v", fee)
	}
}

func TestMaterialize_UnknownStudent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, f.classID, monday, 4)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Materialize(ctx, f.classID, []int64{f.students[0], 987654}, res, monday)
	var ue *billing.UnknownStudentsError
	if !errors.As(err, &ue) || len(ue.IDs) != 1 || ue.IDs[0] != 987654 {
		t.Fatalf("получили %v", err)
	}
}

func TestMaterialize_SessionFailureLeavesNoOrphan(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, f.classID, monday, 4)
	if err != nil {
		t.Fatal(err)
	}
	// статус вне CHECK: вставка занятий упадёт после вставки начисления
	res.Sessions[2].Status = models.SessionStatus("bogus")

	out, err := f.svc.Materialize(ctx, f.classID, f.students, res, monday)
	if err != nil {
		t.Fatal(err)
	}
	if out.Created != 0 || out.Skipped != 3 {
		t.Fatalf("получили %+v", out)
	}
	if _, err := db.FindTuitionFee(ctx, f.db, f.classID, f.students[0], 2024, 3); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("осталось начисление без занятий: %v", err)
	}
}

func TestLifecycle_CancelCarryoverReplace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mustMaterialize(t, f, 4)

	fee := feeOf(t, f, f.students[0])
	ss := sessionsOf(t, f, fee.ID)

	ch, err := f.svc.CancelSession(ctx, ss[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if ch.Session.Status != models.StatusCancelled || ch.Totals.SessionsCount != 3 || ch.Totals.Amount != 75000 {
		t.Fatalf("после отмены %+v / %+v", ch.Session, ch.Totals)
	}
	var te *tuition.TransitionError
	if _, err := f.svc.CancelSession(ctx, ss[0].ID); !errors.As(err, &te) {
		t.Fatalf("повторная отмена: %v", err)
	}

	ch, err = f.svc.MarkCarryover(ctx, ss[1].ID, "no makeup slot")
	if err != nil {
		t.Fatal(err)
	}
	if ch.Totals.Amount != 50000 || ch.Session.Note == nil || *ch.Session.Note != "no makeup slot" {
		t.Fatalf("после переноса %+v / %+v", ch.Session, ch.Totals)
	}
	if got := feeOf(t, f, f.students[0]); got.CarryoverToNext != 1 {
		t.Fatalf("carryover_to_next=%d", got.CarryoverToNext)
	}

	ch, err = f.svc.AddReplacementSession(ctx, fee.ID, monday.AddDate(0, 0, 15), ss[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if ch.Session.SessionNumber != 5 || ch.Session.OriginalSessionID == nil || *ch.Session.OriginalSessionID != ss[0].ID {
		t.Fatalf("замена %+v", ch.Session)
	}
	if ch.Totals.SessionsCount != 3 || ch.Totals.Amount != 75000 {
		t.Fatalf("после замены %+v", ch.Totals)
	}

	other := feeOf(t, f, f.students[1])
	if _, err := f.svc.AddReplacementSession(ctx, other.ID, monday.AddDate(0, 0, 15), ss[0].ID); !errors.Is(err, billing.ErrForeignSession) {
		t.Fatalf("чужое занятие: %v", err)
	}

	ch, err = f.svc.ResolveAttendance(ctx, ss[2].ID, models.StatusAttended)
	if err != nil {
		t.Fatal(err)
	}
	if ch.Totals.Amount != 75000 {
		t.Fatalf("посещение изменило сумму: %+v", ch.Totals)
	}
	if _, err := f.svc.ResolveAttendance(ctx, ss[3].ID, models.StatusCancelled); !errors.Is(err, billing.ErrNotAttendanceStatus) {
		t.Fatalf("получили %v", err)
	}
}

func TestClosure_ApplyWithdrawRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mustMaterialize(t, f, 4)

	before := feeOf(t, f, f.students[0])
	ss := sessionsOf(t, f, before.ID)
	// отменённое занятие в тот же день не должно стать closure
	if _, err := f.svc.CancelSession(ctx, ss[1].ID); err != nil {
		t.Fatal(err)
	}
	before = feeOf(t, f, f.students[0])

	date := ss[1].SessionDate // 06.03
	closureID := mustClosure(t, f, date, nil)

	n, err := f.svc.ApplyClosureByID(ctx, closureID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 { // у двух других учеников
		t.Fatalf("затронуто %d занятий", n)
	}
	again, err := f.svc.ApplyClosure(ctx, closureID, date, nil)
	if err != nil || again != 0 {
		t.Fatalf("повтор: %d %v", again, err)
	}

	closed := feeOf(t, f, f.students[1])
	if closed.SessionsCount != 3 || closed.Amount != 75000 {
		t.Fatalf("после выходного %+v", closed)
	}

	n, err = f.svc.WithdrawClosure(ctx, closureID)
	if err != nil || n != 2 {
		t.Fatalf("отмена выходного: %d %v", n, err)
	}
	if again, _ := f.svc.WithdrawClosure(ctx, closureID); again != 0 {
		t.Fatalf("повторная отмена затронула %d", again)
	}

	restored := feeOf(t, f, f.students[1])
	if restored.Amount != 100000 || restored.SessionsCount != 4 {
		t.Fatalf("сумма не восстановилась: %+v", restored)
	}
	for _, s := range sessionsOf(t, f, restored.ID) {
		if s.Status != models.StatusScheduled || s.ClosureID != nil {
			t.Fatalf("занятие не восстановлено: %+v", s)
		}
	}
	if after := feeOf(t, f, f.students[0]); after.Amount != before.Amount {
		t.Fatalf("у ученика с отменой сумма изменилась: %d -> %d", before.Amount, after.Amount)
	}
	if got := sessionsOf(t, f, before.ID)[1]; got.Status != models.StatusCancelled {
		t.Fatalf("отменённое занятие стало %s", got.Status)
	}
}

func TestClosure_OtherClassUntouched(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mustMaterialize(t, f, 4)

	other, err := db.CreateClass(ctx, f.db, models.Class{Name: "Other", MonthlyFee: 1, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	closureID := mustClosure(t, f, monday, &other)
	n, err := f.svc.ApplyClosureByID(ctx, closureID)
	if err != nil || n != 0 {
		t.Fatalf("выходной другого класса затронул %d (%v)", n, err)
	}
}

func TestRecalculate_IdempotentAndReconcile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mustMaterialize(t, f, 4)

	fee := feeOf(t, f, f.students[0])
	a, err := f.svc.Recalculate(ctx, fee.ID)
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.svc.Recalculate(ctx, fee.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a != b || a.Amount != 100000 {
		t.Fatalf("%+v vs %+v", a, b)
	}

	// изменение мимо движка: сумма расходится, сверка её чинит
	if _, err := f.db.ExecContext(ctx, `UPDATE class_sessions SET status = 'cancelled' WHERE tuition_fee_id = $1 AND session_number = 1`, fee.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.db.ExecContext(ctx, `UPDATE tuition_fees SET carryover_from_prev = 1 WHERE id = $1`, fee.ID); err != nil {
		t.Fatal(err)
	}
	rep, err := f.svc.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Checked != 3 || rep.Drifted != 1 {
		t.Fatalf("получили %+v", rep)
	}
	if got := feeOf(t, f, f.students[0]); got.Amount != 50000 || got.SessionsCount != 3 {
		t.Fatalf("после сверки %+v", got)
	}
	if _, err := f.svc.Recalculate(ctx, 987654); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("получили %v", err)
	}
}
