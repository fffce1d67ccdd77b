package matches

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/enums"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/rules"
	"github.com/gadsdencode/vybechex-sub000/internal/infra/metrics"
	pgrepo "github.com/gadsdencode/vybechex-sub000/internal/repo/postgres"
	"github.com/gadsdencode/vybechex-sub000/internal/services/admission"
)

const (
	defaultSuggestionLimit = 20
	maxSuggestionLimit     = 100
	candidatePoolSize      = 200
)

type MatchStore interface {
	ExistsForPair(ctx context.Context, userID, targetID int64) (bool, error)
	Insert(ctx context.Context, in pgrepo.NewMatch) (model.Match, error)
	GetByID(ctx context.Context, matchID int64) (model.Match, error)
	TransitionFromRequested(ctx context.Context, matchID, responderID int64, to enums.MatchStatus, at time.Time) (model.Match, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Match, error)
}

type ProfileReader interface {
	GetMany(ctx context.Context, userIDs []int64) (map[int64]model.Profile, error)
	Candidates(ctx context.Context, actorID int64, limit int) ([]model.Profile, error)
}

type Admission interface {
	Allow(ctx context.Context, actorID int64, action enums.AdmissionAction) (admission.Decision, error)
}

type Dependencies struct {
	Matches   MatchStore
	Profiles  ProfileReader
	Admission Admission
}

type Config struct {
	MinSuggestionScore int
	SuggestionLimit    int
}

type Service struct {
	matches   MatchStore
	profiles  ProfileReader
	admission Admission
	cfg       Config
	now       func() time.Time
}

// Detail is a match seen from one participant, with the other side's public profile.
type Detail struct {
	Match       model.Match
	Counterpart model.PublicProfile
}

type Buckets struct {
	Incoming []Detail
	Outgoing []Detail
	Accepted []Detail
	Rejected []Detail
}

// Suggestion is the unpersisted potential tier.
type Suggestion struct {
	Profile model.PublicProfile
	Score   int
	Status  enums.MatchStatus
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.SuggestionLimit <= 0 {
		cfg.SuggestionLimit = defaultSuggestionLimit
	}
	if cfg.MinSuggestionScore < 0 {
		cfg.MinSuggestionScore = 0
	}

	return &Service{
		matches:   deps.Matches,
		profiles:  deps.Profiles,
		admission: deps.Admission,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *Service) Create(ctx context.Context, initiatorID, targetID int64) (model.Match, error) {
	if initiatorID <= 0 || targetID <= 0 {
		return model.Match{}, fmt.Errorf("invalid user id: %w", errs.ErrValidation)
	}
	if initiatorID == targetID {
		return model.Match{}, errs.ErrSelfMatch
	}
	if err := s.ready(); err != nil {
		return model.Match{}, err
	}

	profiles, err := s.profiles.GetMany(ctx, []int64{initiatorID, targetID})
	if err != nil {
		return model.Match{}, err
	}
	initiator, okInitiator := profiles[initiatorID]
	target, okTarget := profiles[targetID]
	if !okInitiator || !okTarget || !initiator.QuizCompleted || !target.QuizCompleted {
		metrics.MatchRequestsTotal.WithLabelValues("quiz_incomplete").Inc()
		return model.Match{}, errs.ErrQuizIncomplete
	}

	exists, err := s.matches.ExistsForPair(ctx, initiatorID, targetID)
	if err != nil {
		return model.Match{}, err
	}
	if exists {
		metrics.MatchRequestsTotal.WithLabelValues("duplicate").Inc()
		return model.Match{}, errs.ErrDuplicateMatch
	}

	now := s.now().UTC()
	decision, err := s.admission.Allow(ctx, initiatorID, enums.AdmissionActionMatchRequest)
	if err != nil {
		return model.Match{}, err
	}
	if !decision.Allowed {
		metrics.MatchRequestsTotal.WithLabelValues("rate_limited").Inc()
		return model.Match{}, decision.Err(now)
	}

	score := rules.Score(rules.SubjectOf(initiator), rules.SubjectOf(target)).Score

	match, err := s.matches.Insert(ctx, pgrepo.NewMatch{
		InitiatorID: initiatorID,
		TargetID:    targetID,
		Score:       score,
		CreatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			metrics.MatchRequestsTotal.WithLabelValues("duplicate").Inc()
		}
		return model.Match{}, err
	}

	metrics.MatchRequestsTotal.WithLabelValues("created").Inc()
	metrics.CompatibilityScores.Observe(float64(score))
	return match, nil
}

// Respond moves a requested match to accepted or rejected. The read only
// classifies the caller; the transition itself is the conditional update.
// A match that has left requested is a conflict for both participants.
func (s *Service) Respond(ctx context.Context, matchID, responderID int64, decision enums.MatchStatus) (model.Match, error) {
	if matchID <= 0 || responderID <= 0 {
		return model.Match{}, fmt.Errorf("invalid id: %w", errs.ErrValidation)
	}
	if !decision.IsTerminal() {
		return model.Match{}, fmt.Errorf("invalid decision %q: %w", decision, errs.ErrValidation)
	}
	if err := s.ready(); err != nil {
		return model.Match{}, err
	}

	current, err := s.participantMatch(ctx, matchID, responderID)
	if err != nil {
		return model.Match{}, err
	}
	if current.Status != enums.MatchStatusRequested {
		metrics.MatchResponsesTotal.WithLabelValues(string(decision), "invalid_state").Inc()
		return model.Match{}, errs.ErrInvalidState
	}
	if current.InitiatorID == responderID {
		metrics.MatchResponsesTotal.WithLabelValues(string(decision), "own_request").Inc()
		return model.Match{}, errs.ErrOwnRequest
	}

	updated, err := s.matches.TransitionFromRequested(ctx, matchID, responderID, decision, s.now().UTC())
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			metrics.MatchResponsesTotal.WithLabelValues(string(decision), "invalid_state").Inc()
		}
		return model.Match{}, err
	}

	metrics.MatchResponsesTotal.WithLabelValues(string(decision), "ok").Inc()
	return updated, nil
}

func (s *Service) Get(ctx context.Context, matchID, requesterID int64) (Detail, error) {
	if matchID <= 0 || requesterID <= 0 {
		return Detail{}, fmt.Errorf("invalid id: %w", errs.ErrValidation)
	}
	if err := s.ready(); err != nil {
		return Detail{}, err
	}

	match, err := s.participantMatch(ctx, matchID, requesterID)
	if err != nil {
		return Detail{}, err
	}

	otherID, _ := match.OtherUserID(requesterID)
	profiles, err := s.profiles.GetMany(ctx, []int64{otherID})
	if err != nil {
		return Detail{}, err
	}

	return Detail{Match: match, Counterpart: counterpart(profiles, otherID)}, nil
}

// List groups every match of the actor by status. Counterpart profiles are
// fetched in one batch regardless of the number of matches.
func (s *Service) List(ctx context.Context, actorID int64) (Buckets, error) {
	out := Buckets{
		Incoming: []Detail{},
		Outgoing: []Detail{},
		Accepted: []Detail{},
		Rejected: []Detail{},
	}
	if actorID <= 0 {
		return out, fmt.Errorf("invalid actor id: %w", errs.ErrValidation)
	}
	if err := s.ready(); err != nil {
		return out, err
	}

	items, err := s.matches.ListForUser(ctx, actorID)
	if err != nil {
		return out, err
	}
	if len(items) == 0 {
		return out, nil
	}

	otherIDs := make([]int64, 0, len(items))
	for _, m := range items {
		if otherID, ok := m.OtherUserID(actorID); ok {
			otherIDs = append(otherIDs, otherID)
		}
	}
	profiles, err := s.profiles.GetMany(ctx, otherIDs)
	if err != nil {
		return out, err
	}

	for _, m := range items {
		otherID, ok := m.OtherUserID(actorID)
		if !ok {
			continue
		}
		detail := Detail{Match: m, Counterpart: counterpart(profiles, otherID)}

		switch m.Status {
		case enums.MatchStatusRequested:
			if m.InitiatorID == actorID {
				out.Outgoing = append(out.Outgoing, detail)
			} else {
				out.Incoming = append(out.Incoming, detail)
			}
		case enums.MatchStatusAccepted:
			out.Accepted = append(out.Accepted, detail)
		case enums.MatchStatusRejected:
			out.Rejected = append(out.Rejected, detail)
		}
	}

	return out, nil
}

// AuthorizeChannel admits a participant of an accepted match. Every other case,
// including a match that exists but is not accepted yet, reads as not found.
func (s *Service) AuthorizeChannel(ctx context.Context, matchID, actorID int64) (model.Match, error) {
	if matchID <= 0 || actorID <= 0 {
		return model.Match{}, fmt.Errorf("invalid id: %w", errs.ErrValidation)
	}
	if s.matches == nil {
		return model.Match{}, fmt.Errorf("match store is nil")
	}

	match, err := s.participantMatch(ctx, matchID, actorID)
	if err != nil {
		return model.Match{}, err
	}
	if match.Status != enums.MatchStatusAccepted {
		return model.Match{}, errs.ErrMatchNotAccepted
	}
	return match, nil
}

// Suggest scores users the actor has no match with yet and returns those at
// or above the configured floor, best first.
func (s *Service) Suggest(ctx context.Context, actorID int64, limit int) ([]Suggestion, error) {
	if actorID <= 0 {
		return nil, fmt.Errorf("invalid actor id: %w", errs.ErrValidation)
	}
	if s.profiles == nil {
		return nil, fmt.Errorf("profile reader is nil")
	}
	if limit <= 0 {
		limit = s.cfg.SuggestionLimit
	}
	if limit > maxSuggestionLimit {
		limit = maxSuggestionLimit
	}

	profiles, err := s.profiles.GetMany(ctx, []int64{actorID})
	if err != nil {
		return nil, err
	}
	actor, ok := profiles[actorID]
	if !ok || !actor.QuizCompleted {
		return nil, errs.ErrQuizIncomplete
	}

	candidates, err := s.profiles.Candidates(ctx, actorID, candidatePoolSize)
	if err != nil {
		return nil, err
	}

	actorSubject := rules.SubjectOf(actor)
	items := make([]Suggestion, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.UserID == actorID || !candidate.QuizCompleted {
			continue
		}
		score := rules.Score(actorSubject, rules.SubjectOf(candidate)).Score
		if score < s.cfg.MinSuggestionScore {
			continue
		}
		items = append(items, Suggestion{
			Profile: candidate.Public(),
			Score:   score,
			Status:  enums.MatchStatusPotential,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Profile.UserID < items[j].Profile.UserID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Service) participantMatch(ctx context.Context, matchID, userID int64) (model.Match, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return model.Match{}, err
	}
	if !match.HasUser(userID) {
		return model.Match{}, fmt.Errorf("match %d: %w", matchID, errs.ErrNotFound)
	}
	return match, nil
}

func (s *Service) ready() error {
	if s.matches == nil {
		return fmt.Errorf("match store is nil")
	}
	if s.profiles == nil {
		return fmt.Errorf("profile reader is nil")
	}
	if s.admission == nil {
		return fmt.Errorf("admission controller is nil")
	}
	return nil
}

func counterpart(profiles map[int64]model.Profile, userID int64) model.PublicProfile {
	if p, ok := profiles[userID]; ok {
		return p.Public()
	}
	return model.PublicProfile{UserID: userID}
}
