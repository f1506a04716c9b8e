package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := New(KindInsufficientStock, "INSUFFICIENT_STOCK", "only 2 left")

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NotErrorIs(t, err, ErrNotFound)

	wrapped := fmt.Errorf("reserve: %w", err)
	assert.ErrorIs(t, wrapped, ErrInsufficientStock)
	assert.Equal(t, KindInsufficientStock, KindOf(wrapped))
	assert.Equal(t, "INSUFFICIENT_STOCK", CodeOf(wrapped))
}

func TestIs_CodeSpecificTarget(t *testing.T) {
	err := New(KindNotFound, "ORDER_NOT_FOUND", "order not found")

	assert.ErrorIs(t, err, &Error{Kind: KindNotFound, Code: "ORDER_NOT_FOUND"})
	assert.NotErrorIs(t, err, &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND"})
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindNotFound, "PRODUCT_NOT_FOUND", "lookup failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
