package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/lessongen/internal/data/repos"
	"github.com/yungbote/lessongen/internal/data/repos/testutil"
	types "github.com/yungbote/lessongen/internal/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return New(log, repos.NewTemplateRepo(db, log), repos.NewDayUnitRepo(db, log), repos.NewUserUnitRepo(db, log))
}

func TestTemplateRaceConverges(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	sig := "f00d"

	const n = 8
	var wg sync.WaitGroup
	got := make([]*types.GenerationTemplate, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = s.InsertTemplate(ctx, &types.GenerationTemplate{
				Signature: sig,
				Version:   1,
				Kind:      types.KindPlan,
				Content:   datatypes.JSON([]byte(fmt.Sprintf(`{"writer":%d}`, i))),
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("writer %d: %v", i, errs[i])
		}
		if got[i].ID != got[0].ID || string(got[i].Content) != string(got[0].Content) {
			t.Fatalf("writer %d saw %s/%s, writer 0 saw %s/%s", i, got[i].ID, got[i].Content, got[0].ID, got[0].Content)
		}
	}
	row, err := s.LookupTemplate(ctx, sig, 1)
	if err != nil || row == nil || row.ID != got[0].ID {
		t.Fatalf("lookup: %+v err=%v", row, err)
	}
}

func TestDayAndUserUnits(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tmpl := uuid.New()

	key := repos.DayUnitKey{TemplateID: tmpl, DayIndex: 3, Kind: types.KindQuiz, Version: 1}
	if row, err := s.LookupDayUnit(ctx, key); err != nil || row != nil {
		t.Fatalf("expected miss: %+v err=%v", row, err)
	}
	first, err := s.InsertDayUnit(ctx, &types.GenerationDayUnit{TemplateID: tmpl, DayIndex: 3, Kind: types.KindQuiz, Version: 1, Content: datatypes.JSON(`{"a":1}`)})
	if err != nil {
		t.Fatalf("InsertDayUnit: %v", err)
	}
	second, err := s.InsertDayUnit(ctx, &types.GenerationDayUnit{TemplateID: tmpl, DayIndex: 3, Kind: types.KindQuiz, Version: 1, Content: datatypes.JSON(`{"a":2}`)})
	if err != nil {
		t.Fatalf("InsertDayUnit again: %v", err)
	}
	if second.ID != first.ID || string(second.Content) != `{"a":1}` {
		t.Fatalf("second insert should return canonical row: %+v", second)
	}

	user, goal := uuid.New(), uuid.New()
	ukey := repos.UserUnitKey{UserID: user, GoalID: goal, DayIndex: 1, Kind: types.KindLesson}
	if row, _ := s.LookupUserUnit(ctx, ukey); row != nil {
		t.Fatalf("expected user unit miss")
	}
	if _, err := s.InsertUserUnit(ctx, &types.GenerationUserUnit{UserID: user, GoalID: goal, DayIndex: 1, Kind: types.KindLesson, Content: datatypes.JSON(`{}`)}); err != nil {
		t.Fatalf("InsertUserUnit: %v", err)
	}
	if row, _ := s.LookupUserUnit(ctx, ukey); row == nil {
		t.Fatalf("expected user unit hit")
	}
}
