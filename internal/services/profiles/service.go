package profiles

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/rules"
	pgrepo "github.com/gadsdencode/vybechex-sub000/internal/repo/postgres"
)

type ProfileStore interface {
	GetByIDs(ctx context.Context, userIDs []int64) ([]pgrepo.ProfileRecord, error)
	ListSuggestionCandidates(ctx context.Context, actorID int64, limit int) ([]pgrepo.ProfileRecord, error)
}

// Service is the read-only boundary to profile data owned elsewhere. Every
// profile leaving it has been normalized, so scoring can trust its input.
type Service struct {
	store ProfileStore
}

func NewService(store ProfileStore) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, userID int64) (model.Profile, error) {
	items, err := s.GetMany(ctx, []int64{userID})
	if err != nil {
		return model.Profile{}, err
	}
	profile, ok := items[userID]
	if !ok {
		return model.Profile{}, fmt.Errorf("profile %d: %w", userID, errs.ErrNotFound)
	}
	return profile, nil
}

// GetMany loads all requested profiles in one batch. Missing users are absent from the map.
func (s *Service) GetMany(ctx context.Context, userIDs []int64) (map[int64]model.Profile, error) {
	if s.store == nil {
		return nil, fmt.Errorf("profile store is nil")
	}

	ids := uniquePositive(userIDs)
	out := make(map[int64]model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	records, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	for _, rec := range records {
		out[rec.UserID] = Normalize(rec)
	}
	return out, nil
}

func (s *Service) Candidates(ctx context.Context, actorID int64, limit int) ([]model.Profile, error) {
	if actorID <= 0 {
		return nil, fmt.Errorf("invalid actor id: %w", errs.ErrValidation)
	}
	if s.store == nil {
		return nil, fmt.Errorf("profile store is nil")
	}

	records, err := s.store.ListSuggestionCandidates(ctx, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list suggestion candidates: %w", err)
	}

	items := make([]model.Profile, 0, len(records))
	for _, rec := range records {
		if rec.UserID == actorID {
			continue
		}
		items = append(items, Normalize(rec))
	}
	return items, nil
}

// Normalize maps a raw record onto the canonical trait struct. Axis names are
// case-folded, out-of-range values are dropped as missing, interest names are
// folded and de-duplicated keeping the highest score.
func Normalize(rec pgrepo.ProfileRecord) model.Profile {
	profile := model.Profile{
		UserID:        rec.UserID,
		DisplayName:   strings.TrimSpace(rec.DisplayName),
		AvatarURL:     strings.TrimSpace(rec.AvatarURL),
		QuizCompleted: rec.QuizCompleted,
		Traits:        normalizeTraits(rec.Traits),
		Interests:     normalizeInterests(rec.Interests),
	}
	return profile
}

func normalizeTraits(raw map[string]float64) model.Traits {
	var traits model.Traits

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		if math.IsNaN(value) || value < 0 || value > 1 {
			continue
		}
		v := value

		name := strings.ToLower(strings.TrimSpace(key))
		switch rules.Axis(name) {
		case rules.AxisCommunication:
			traits.Communication = &v
		case rules.AxisValues:
			traits.Values = &v
		case rules.AxisExtraversion:
			traits.Extraversion = &v
		case rules.AxisOpenness:
			traits.Openness = &v
		case rules.AxisPlanning:
			traits.Planning = &v
		case rules.AxisSociability:
			traits.Sociability = &v
		default:
			if name == "" {
				continue
			}
			if traits.Extra == nil {
				traits.Extra = make(map[string]float64)
			}
			traits.Extra[name] = v
		}
	}

	return traits
}

func normalizeInterests(raw []model.Interest) []model.Interest {
	if len(raw) == 0 {
		return nil
	}

	byName := make(map[string]model.Interest, len(raw))
	for _, in := range raw {
		name := strings.ToLower(strings.TrimSpace(in.Name))
		if name == "" || math.IsNaN(in.Score) {
			continue
		}
		in.Name = name
		in.Score = clampUnit(in.Score)
		in.Category = strings.ToLower(strings.TrimSpace(in.Category))

		if current, ok := byName[name]; ok && current.Score >= in.Score {
			continue
		}
		byName[name] = in
	}

	out := make([]model.Interest, 0, len(byName))
	for _, in := range byName {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func uniquePositive(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
