package messages

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
	"github.com/gadsdencode/vybechex-sub000/internal/infra/metrics"
)

const (
	DefaultMaxLength = 2000
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type MessageStore interface {
	Append(ctx context.Context, matchID, senderID int64, content string, at time.Time) (model.Message, error)
	ListByMatch(ctx context.Context, matchID, afterID int64, limit int) ([]model.Message, error)
}

// Authorizer is the lifecycle check shared with the real-time channel, so
// history and live delivery follow one access rule.
type Authorizer interface {
	AuthorizeChannel(ctx context.Context, matchID, actorID int64) (model.Match, error)
}

type Config struct {
	MaxLength int
}

type Page struct {
	AfterID int64
	Limit   int
}

type Service struct {
	store     MessageStore
	authz     Authorizer
	maxLength int
	now       func() time.Time
}

func NewService(store MessageStore, authz Authorizer, cfg Config) *Service {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}

	return &Service{
		store:     store,
		authz:     authz,
		maxLength: cfg.MaxLength,
		now:       time.Now,
	}
}

// Send persists one message. Once Append returns the message is durable,
// independent of any delivery that follows.
func (s *Service) Send(ctx context.Context, matchID, senderID int64, content string) (model.Message, error) {
	if matchID <= 0 || senderID <= 0 {
		return model.Message{}, fmt.Errorf("invalid id: %w", errs.ErrValidation)
	}
	content, err := s.normalizeContent(content)
	if err != nil {
		return model.Message{}, err
	}
	if s.store == nil || s.authz == nil {
		return model.Message{}, fmt.Errorf("message service dependencies are nil")
	}

	if _, err := s.authz.AuthorizeChannel(ctx, matchID, senderID); err != nil {
		return model.Message{}, err
	}

	msg, err := s.store.Append(ctx, matchID, senderID, content, s.now().UTC())
	if err != nil {
		return model.Message{}, err
	}

	metrics.MessagesPersistedTotal.Inc()
	return msg, nil
}

func (s *Service) List(ctx context.Context, matchID, requesterID int64, page Page) ([]model.Message, error) {
	if matchID <= 0 || requesterID <= 0 || page.AfterID < 0 {
		return nil, fmt.Errorf("invalid id: %w", errs.ErrValidation)
	}
	if s.store == nil || s.authz == nil {
		return nil, fmt.Errorf("message service dependencies are nil")
	}

	if _, err := s.authz.AuthorizeChannel(ctx, matchID, requesterID); err != nil {
		return nil, err
	}

	return s.store.ListByMatch(ctx, matchID, page.AfterID, clampLimit(page.Limit))
}

func (s *Service) normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errs.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.maxLength {
		return "", errs.ErrContentTooLong
	}
	return content, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}
