package matches

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/enums"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
	"github.com/gadsdencode/vybechex-sub000/internal/services/admission"
)

func ptr(v float64) *float64 {
	return &v
}

func scenarioTraits() model.Traits {
	return model.Traits{
		Extraversion:  ptr(0.8),
		Communication: ptr(0.6),
		Openness:      ptr(0.5),
		Values:        ptr(0.7),
		Planning:      ptr(0.4),
		Sociability:   ptr(0.9),
	}
}

func quizProfile(id int64, name string, traits model.Traits) model.Profile {
	return model.Profile{UserID: id, DisplayName: name, QuizCompleted: true, Traits: traits}
}

type fixture struct {
	svc      *Service
	store    *memoryMatchStore
	profiles *fakeProfiles
	counters *clockCounterStore
}

func newFixture(t *testing.T, maxActions int, profiles ...model.Profile) fixture {
	t.Helper()

	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	byID := make(map[int64]model.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.UserID] = p
	}

	store := newMemoryMatchStore()
	reader := &fakeProfiles{profiles: byID}
	counters := newClockCounterStore(start)
	ctrl := admission.NewController(counters, admission.Config{MaxActions: maxActions, Window: time.Hour}, nil)

	svc := NewService(Dependencies{
		Matches:   store,
		Profiles:  reader,
		Admission: ctrl,
	}, Config{MinSuggestionScore: 50})
	svc.now = func() time.Time { return start }

	return fixture{svc: svc, store: store, profiles: reader, counters: counters}
}

func TestCreateIdenticalProfilesScoreHundred(t *testing.T) {
	f := newFixture(t, 20,
		quizProfile(1, "A", scenarioTraits()),
		quizProfile(2, "B", scenarioTraits()),
	)

	match, err := f.svc.Create(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	if match.Score != 100 {
		t.Fatalf("unexpected score: %d", match.Score)
	}
	if match.Status != enums.MatchStatusRequested {
		t.Fatalf("unexpected status: %s", match.Status)
	}
	if match.UserAID != 1 || match.UserBID != 2 || match.InitiatorID != 2 {
		t.Fatalf("participants must be stored in canonical order: %+v", match)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, 20,
		quizProfile(1, "A", scenarioTraits()),
		model.Profile{UserID: 2, DisplayName: "B"},
	)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, 1, 1); !errors.Is(err, errs.ErrSelfMatch) || !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected self-match validation error, got %v", err)
	}
	if _, err := f.svc.Create(ctx, 0, 1); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for non-positive id, got %v", err)
	}
	if _, err := f.svc.Create(ctx, 1, 2); !errors.Is(err, errs.ErrQuizIncomplete) {
		t.Fatalf("expected quiz incomplete, got %v", err)
	}
	if _, err := f.svc.Create(ctx, 1, 3); !errors.Is(err, errs.ErrQuizIncomplete) {
		t.Fatalf("missing profile must read as quiz incomplete, got %v", err)
	}
	if f.store.count() != 0 {
		t.Fatalf("rejected requests must not persist rows")
	}
}

func TestCreateDuplicateEitherDirection(t *testing.T) {
	f := newFixture(t, 20,
		quizProfile(1, "A", scenarioTraits()),
		quizProfile(2, "B", scenarioTraits()),
	)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, 1, 2); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := f.svc.Create(ctx, 1, 2); !errors.Is(err, errs.ErrDuplicateMatch) || !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected duplicate conflict, got %v", err)
	}
	if _, err := f.svc.Create(ctx, 2, 1); !errors.Is(err, errs.ErrDuplicateMatch) {
		t.Fatalf("expected duplicate conflict for reverse direction, got %v", err)
	}
	if f.store.count() != 1 {
		t.Fatalf("expected exactly one row, got %d", f.store.count())
	}
}

func TestCreateConcurrentBothDirectionsPersistsOneRow(t *testing.T) {
	f := newFixture(t, 20,
		quizProfile(1, "A", scenarioTraits()),
		quizProfile(2, "B", scenarioTraits()),
	)

	// hold both callers after the existence check so they race on the insert
	var gate sync.WaitGroup
	gate.Add(2)
	f.store.beforeInsert = func() {
		gate.Done()
		gate.Wait()
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, pair := range [][2]int64{{1, 2}, {2, 1}} {
		wg.Add(1)
		go func(i int, initiator, target int64) {
			defer wg.Done()
			_, results[i] = f.svc.Create(context.Background(), initiator, target)
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	var created, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, errs.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || conflicts != 1 {
		t.Fatalf("expected one winner and one conflict, got created=%d conflicts=%d", created, conflicts)
	}
	if f.store.count() != 1 {
		t.Fatalf("expected exactly one row, got %d", f.store.count())
	}
}

func TestCreateRateLimitedThenRecovers(t *testing.T) {
	const maxActions = 3

	profiles := []model.Profile{quizProfile(1, "actor", scenarioTraits())}
	for id := int64(2); id <= 6; id++ {
		profiles = append(profiles, quizProfile(id, "target", scenarioTraits()))
	}
	f := newFixture(t, maxActions, profiles...)
	ctx := context.Background()

	for target := int64(2); target < 2+maxActions; target++ {
		if _, err := f.svc.Create(ctx, 1, target); err != nil {
			t.Fatalf("create with %d: %v", target, err)
		}
	}

	_, err := f.svc.Create(ctx, 1, 5)
	var limited errs.RateLimitedError
	if !errors.As(err, &limited) || !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if limited.RetryAfter <= 0 {
		t.Fatalf("expected positive retry after, got %s", limited.RetryAfter)
	}

	f.counters.advance(time.Hour + time.Second)
	if _, err := f.svc.Create(ctx, 1, 5); err != nil {
		t.Fatalf("create after window: %v", err)
	}
}

func TestRespondLifecycle(t *testing.T) {
	f := newFixture(t, 20,
		quizProfile(1, "A", scenarioTraits()),
		quizProfile(2, "B", scenarioTraits()),
		quizProfile(3, "C", scenarioTraits()),
	)
	ctx := context.Background()

	match, err := f.svc.Create(ctx, 1, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Respond(ctx, match.ID, 1, enums.MatchStatusAccepted); !errors.Is(err, errs.ErrOwnRequest) || !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("initiator must not respond to own request, got %v", err)
	}
	if _, err := f.svc.Respond(ctx, match.ID, 3, enums.MatchStatusAccepted); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("non-participant must see not found, got %v", err)
	}
	if _, err := f.svc.Respond(ctx, 999, 2, enums.MatchStatusAccepted); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing match must be not found, got %v", err)
	}
	if _, err := f.svc.Respond(ctx, match.ID, 2, enums.MatchStatusPotential); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("potential is not a decision, got %v", err)
	}

	updated, err := f.svc.Respond(ctx, match.ID, 2, enums.MatchStatusAccepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if updated.Status != enums.MatchStatusAccepted || updated.RespondedAt == nil {
		t.Fatalf("unexpected match after accept: %+v", updated)
	}
	if updated.Score != match.Score {
		t.Fatalf("score must not change on respond")
	}

	for _, decision := range []enums.MatchStatus{enums.MatchStatusAccepted, enums.MatchStatusRejected} {
		_, err := f.svc.Respond(ctx, match.ID, 2, decision)
		if !errors.Is(err, errs.ErrInvalidState) || !errors.Is(err, errs.ErrConflict) {
			t.Fatalf("terminal match must reject %s with invalid state, got %v", decision, err)
		}
	}
}

func TestRespondByInitiatorOnTerminalMatchIsConflict(t *testing.T) {
	for _, outcome := range []enums.MatchStatus{enums.MatchStatusAccepted, enums.MatchStatusRejected} {
		t.Run(string(outcome), func(t *testing.T) {
			f := newFixture(t, 20,
				quizProfile(1, "A", scenarioTraits()),
				quizProfile(2, "B", scenarioTraits()),
			)
			ctx := context.Background()

			match, err := f.svc.Create(ctx, 1, 2)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if _, err := f.svc.Respond(ctx, match.ID, 2, outcome); err != nil {
				t.Fatalf("respond as target: %v", err)
			}

			_, err = f.svc.Respond(ctx, match.ID, 1, enums.MatchStatusAccepted)
			if !errors.Is(err, errs.ErrInvalidState) {
				t.Fatalf("initiator on %s match must get invalid state, got %v", outcome, err)
			}
			if errors.Is(err, errs.ErrForbidden) {
				t.Fatalf("invalid state must not read as forbidden: %v", err)
			}
		})
	}
}

func TestRespondConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t, 20,
		quizProfile(1, "A", scenarioTraits()),
		quizProfile(2, "B", scenarioTraits()),
	)
	ctx := context.Background()

	match, err := f.svc.Create(ctx, 1, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < 10; i++ {
		decision := enums.MatchStatusAccepted
		if i%2 == 1 {
			decision = enums.MatchStatusRejected
		}
		wg.Add(1)
		go func(decision enums.MatchStatus) {
			defer wg.Done()
			_, err := f.svc.Respond(ctx, match.ID, 2, decision)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, errs.ErrInvalidState):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(decision)
	}
	wg.Wait()

	if succeeded != 1 || conflicts != 9 {
		t.Fatalf("expected exactly one success, got succeeded=%d conflicts=%d", succeeded, conflicts)
	}
}

func TestGetReturnsCounterpart(t *testing.T) {
	f := newFixture(t, 20,
		quizProfile(1, "Ann", scenarioTraits()),
		quizProfile(2, "Bob", scenarioTraits()),
		quizProfile(3, "Cy", scenarioTraits()),
	)
	ctx := context.Background()

	match, err := f.svc.Create(ctx, 1, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	detail, err := f.svc.Get(ctx, match.ID, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Counterpart.UserID != 1 || detail.Counterpart.DisplayName != "Ann" {
		t.Fatalf("unexpected counterpart: %+v", detail.Counterpart)
	}

	if _, err := f.svc.Get(ctx, match.ID, 3); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("non-participant must see not found, got %v", err)
	}
}

func TestListBucketsWithSingleProfileBatch(t *testing.T) {
	f := newFixture(t, 20,
		quizProfile(1, "Ann", scenarioTraits()),
		quizProfile(2, "Bob", scenarioTraits()),
		quizProfile(3, "Cy", scenarioTraits()),
		quizProfile(4, "Dee", scenarioTraits()),
		quizProfile(5, "Eve", scenarioTraits()),
	)
	ctx := context.Background()

	outgoing, _ := f.svc.Create(ctx, 1, 2)
	incoming, _ := f.svc.Create(ctx, 3, 1)
	accepted, _ := f.svc.Create(ctx, 4, 1)
	rejected, _ := f.svc.Create(ctx, 5, 1)
	if _, err := f.svc.Respond(ctx, accepted.ID, 1, enums.MatchStatusAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.Respond(ctx, rejected.ID, 1, enums.MatchStatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}

	f.profiles.batches = 0
	buckets, err := f.svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if f.profiles.batches != 1 {
		t.Fatalf("expected one profile batch, got %d", f.profiles.batches)
	}

	check := func(name string, got []Detail, wantID int64, wantCounterpart string) {
		t.Helper()
		if len(got) != 1 || got[0].Match.ID != wantID || got[0].Counterpart.DisplayName != wantCounterpart {
			t.Fatalf("unexpected %s bucket: %+v", name, got)
		}
	}
	check("outgoing", buckets.Outgoing, outgoing.ID, "Bob")
	check("incoming", buckets.Incoming, incoming.ID, "Cy")
	check("accepted", buckets.Accepted, accepted.ID, "Dee")
	check("rejected", buckets.Rejected, rejected.ID, "Eve")
}

func TestAuthorizeChannelRequiresAccepted(t *testing.T) {
	f := newFixture(t, 20,
		quizProfile(1, "A", scenarioTraits()),
		quizProfile(2, "B", scenarioTraits()),
		quizProfile(3, "C", scenarioTraits()),
	)
	ctx := context.Background()

	match, err := f.svc.Create(ctx, 1, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.AuthorizeChannel(ctx, match.ID, 1)
	if !errors.Is(err, errs.ErrMatchNotAccepted) || !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("requested match must not authorize, got %v", err)
	}

	if _, err := f.svc.Respond(ctx, match.ID, 2, enums.MatchStatusAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	for _, userID := range []int64{1, 2} {
		if _, err := f.svc.AuthorizeChannel(ctx, match.ID, userID); err != nil {
			t.Fatalf("participant %d must authorize: %v", userID, err)
		}
	}
	if _, err := f.svc.AuthorizeChannel(ctx, match.ID, 3); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("non-participant must not authorize, got %v", err)
	}
}

func TestSuggestRanksAndFilters(t *testing.T) {
	far := model.Traits{
		Extraversion:  ptr(0),
		Communication: ptr(0),
		Openness:      ptr(0),
		Values:        ptr(0),
		Planning:      ptr(1),
		Sociability:   ptr(0),
	}
	near := scenarioTraits()
	near.Planning = ptr(0.6)

	f := newFixture(t, 20,
		quizProfile(1, "actor", scenarioTraits()),
		quizProfile(2, "twin", scenarioTraits()),
		quizProfile(3, "near", near),
		quizProfile(4, "far", far),
		model.Profile{UserID: 5, DisplayName: "no quiz", Traits: scenarioTraits()},
	)

	items, err := f.svc.Suggest(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("unexpected suggestions: %+v", items)
	}
	if items[0].Profile.UserID != 2 || items[0].Score != 100 {
		t.Fatalf("expected twin first with 100, got %+v", items[0])
	}
	if items[1].Profile.UserID != 3 || items[1].Score >= 100 {
		t.Fatalf("expected near profile second, got %+v", items[1])
	}
	for _, item := range items {
		if item.Status != enums.MatchStatusPotential || item.Status.IsPersisted() {
			t.Fatalf("suggestions must carry the unpersisted potential tier")
		}
	}
	if f.store.count() != 0 {
		t.Fatalf("suggestions must never be persisted")
	}
}
