package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
)

type respondPayload struct {
	MatchID  int64  `json:"match_id" validate:"gt=0"`
	Decision string `json:"decision" validate:"required,oneof=accepted rejected"`
}

func TestStructAcceptsValidPayload(t *testing.T) {
	if err := Struct(respondPayload{MatchID: 3, Decision: "accepted"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	err := Struct(respondPayload{MatchID: 0, Decision: "maybe"})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "match_id must be greater than 0") {
		t.Fatalf("missing match_id message: %v", err)
	}
	if !strings.Contains(err.Error(), "decision must be one of [accepted rejected]") {
		t.Fatalf("missing decision message: %v", err)
	}
}
