package generation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/lessongen/internal/data/repos/testutil"
	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
)

func TestTemplateInsertOrGetConvergesUnderRace(t *testing.T) {
	db := testutil.DB(t)
	repo := NewTemplateRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	const workers = 12
	results := make([]*types.GenerationTemplate, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = repo.InsertOrGet(dbc, &types.GenerationTemplate{
				Signature: "sig-race",
				Version:   1,
				Kind:      types.KindPlan,
				Content:   datatypes.JSON(fmt.Sprintf(`{"writer":%d}`, i)),
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i].ID != results[0].ID {
			t.Fatalf("worker %d got id %s, want %s", i, results[i].ID, results[0].ID)
		}
		if string(results[i].Content) != string(results[0].Content) {
			t.Fatalf("worker %d got content %s, want %s", i, results[i].Content, results[0].Content)
		}
	}

	var n int64
	if err := db.Model(&types.GenerationTemplate{}).Where("signature = ?", "sig-race").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows: want=1 got=%d", n)
	}
}

func TestTemplateVersionsAreDistinct(t *testing.T) {
	db := testutil.DB(t)
	repo := NewTemplateRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	v1, inserted, err := repo.InsertOrGet(dbc, &types.GenerationTemplate{Signature: "s", Version: 1, Kind: "plan", Content: datatypes.JSON(`{}`)})
	if err != nil || !inserted {
		t.Fatalf("v1: inserted=%v err=%v", inserted, err)
	}
	v2, inserted, err := repo.InsertOrGet(dbc, &types.GenerationTemplate{Signature: "s", Version: 2, Kind: "plan", Content: datatypes.JSON(`{}`)})
	if err != nil || !inserted {
		t.Fatalf("v2: inserted=%v err=%v", inserted, err)
	}
	if v1.ID == v2.ID {
		t.Fatalf("versions must be separate rows")
	}
	got, err := repo.Get(dbc, "s", 2)
	if err != nil || got == nil || got.ID != v2.ID {
		t.Fatalf("Get v2: %+v err=%v", got, err)
	}
	missing, err := repo.Get(dbc, "s", 3)
	if err != nil || missing != nil {
		t.Fatalf("Get missing: %+v err=%v", missing, err)
	}
}

func TestDayAndUserUnitsInsertOrGet(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.New(context.Background())
	days := NewDayUnitRepo(db, testutil.Logger(t))
	users := NewUserUnitRepo(db, testutil.Logger(t))

	tplID := uuid.New()
	first, inserted, err := days.InsertOrGet(dbc, &types.GenerationDayUnit{
		TemplateID: tplID, DayIndex: 3, Kind: types.KindQuiz, Version: 1, Content: datatypes.JSON(`{"a":1}`),
	})
	if err != nil || !inserted {
		t.Fatalf("first day unit: inserted=%v err=%v", inserted, err)
	}
	second, inserted, err := days.InsertOrGet(dbc, &types.GenerationDayUnit{
		TemplateID: tplID, DayIndex: 3, Kind: types.KindQuiz, Version: 1, Content: datatypes.JSON(`{"a":2}`),
	})
	if err != nil || inserted {
		t.Fatalf("second day unit: inserted=%v err=%v", inserted, err)
	}
	if second.ID != first.ID || string(second.Content) != `{"a":1}` {
		t.Fatalf("expected canonical first row, got %+v", second)
	}

	userID, goalID := uuid.New(), uuid.New()
	u1, _, err := users.InsertOrGet(dbc, &types.GenerationUserUnit{
		UserID: userID, GoalID: goalID, DayIndex: 1, Kind: types.KindLesson, Content: datatypes.JSON(`{"x":1}`),
	})
	if err != nil {
		t.Fatalf("user unit: %v", err)
	}
	u2, inserted, err := users.InsertOrGet(dbc, &types.GenerationUserUnit{
		UserID: userID, GoalID: goalID, DayIndex: 1, Kind: types.KindLesson, Content: datatypes.JSON(`{"x":2}`),
	})
	if err != nil || inserted || u2.ID != u1.ID {
		t.Fatalf("user unit conflict: inserted=%v id=%s want=%s err=%v", inserted, u2.ID, u1.ID, err)
	}
}

func TestSpendRollupIncrement(t *testing.T) {
	db := testutil.DB(t)
	repo := NewSpendRollupRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	for _, d := range []float64{0.10, 0.25, 0.05} {
		if _, err := repo.Increment(dbc, "global", "2026-03-01", d); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
	total, err := repo.Get(dbc, "global", "2026-03-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if math.Abs(total-0.40) > 1e-9 {
		t.Fatalf("total: want=0.40 got=%f", total)
	}
	other, err := repo.Get(dbc, "global", "2026-03-02")
	if err != nil || other != 0 {
		t.Fatalf("other day: %f err=%v", other, err)
	}
}

func TestAdminConfigSaveAndGet(t *testing.T) {
	db := testutil.DB(t)
	repo := NewAdminConfigRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	got, err := repo.Get(dbc)
	if err != nil || got != nil {
		t.Fatalf("empty Get: %+v err=%v", got, err)
	}

	cfg := &types.GenerationAdminConfig{DailyUserBudgetUSD: 1, DailyGlobalBudgetUSD: 50}
	cfg.SetDisabled([]string{"Quiz"})
	if err := repo.Save(dbc, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg2 := &types.GenerationAdminConfig{DailyUserBudgetUSD: 2, DailyGlobalBudgetUSD: 60, UpdatedBy: "ops"}
	if err := repo.Save(dbc, cfg2); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	got, err = repo.Get(dbc)
	if err != nil || got == nil {
		t.Fatalf("Get: %+v err=%v", got, err)
	}
	if got.DailyUserBudgetUSD != 2 || got.DailyGlobalBudgetUSD != 60 || got.UpdatedBy != "ops" {
		t.Fatalf("unexpected config: %+v", got)
	}
	if len(got.Disabled()) != 0 {
		t.Fatalf("disabled set should be replaced, got %v", got.Disabled())
	}
}

func TestCorpusChunkGetByIDsPreservesOrder(t *testing.T) {
	db := testutil.DB(t)
	repo := NewCorpusChunkRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	rows := []*types.CorpusChunk{
		{ID: "c1", PackID: "p", PackVersion: 1, Topic: "go", TextSummary: "one"},
		{ID: "c2", PackID: "p", PackVersion: 1, Topic: "go", TextSummary: "two"},
		{ID: "c3", PackID: "p", PackVersion: 1, Topic: "go", TextSummary: "three"},
	}
	if _, err := repo.UpsertMany(dbc, rows); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}
	if _, err := repo.UpsertMany(dbc, []*types.CorpusChunk{{ID: "c1", PackID: "p", Topic: "go", TextSummary: "changed"}}); err != nil {
		t.Fatalf("UpsertMany again: %v", err)
	}

	got, err := repo.GetByIDs(dbc, []string{"c3", "missing", "c1"})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c3" || got[1].ID != "c1" {
		t.Fatalf("order: %+v", got)
	}
	if got[1].TextSummary != "one" {
		t.Fatalf("chunks are immutable, got %q", got[1].TextSummary)
	}
	n, err := repo.CountByPack(dbc, "p")
	if err != nil || n != 3 {
		t.Fatalf("CountByPack: %d err=%v", n, err)
	}
}

func TestCallRecordAppend(t *testing.T) {
	db := testutil.DB(t)
	repo := NewCallRecordRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	userID := uuid.New()
	_, err := repo.Create(dbc, []*types.GenerationCallRecord{
		{UserID: &userID, EndpointKind: "quiz", Model: "m", Attempt: 1, Signature: "sig"},
		{UserID: &userID, EndpointKind: "quiz", Model: "m", Attempt: 2, Signature: "sig", Success: true, CostUSD: 0.01},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	list, err := repo.ListByUser(dbc, userID, time.Time{}, 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByUser: %d err=%v", len(list), err)
	}
	n, err := repo.CountBySignature(dbc, "sig")
	if err != nil || n != 2 {
		t.Fatalf("CountBySignature: %d err=%v", n, err)
	}
}
