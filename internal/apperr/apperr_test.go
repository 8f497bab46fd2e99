package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFoundf("order %d not found", 4), NotFound},
		{"wrapped invalid state", fmt.Errorf("pay: %w", InvalidStatef("order is already paid")), InvalidState},
		{"validation", Validationf("quantity must be at least 1"), Validation},
		{"unauthorized", Unauthorizedf("staff 3 is not a server"), Unauthorized},
		{"plain error", errors.New("boom"), Internal},
		{"wrapped infrastructure", Wrap(errors.New("conn reset"), "load order"), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrapKeepsClassifiedErrors(t *testing.T) {
	orig := NotFoundf("payment 9 not found")
	wrapped := Wrap(orig, "delete payment")

	assert.Same(t, orig, wrapped)
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestErrorsIsMatchesKindAndMessage(t *testing.T) {
	err := fmt.Errorf("apply: %w", InvalidStatef("already applied"))

	assert.True(t, errors.Is(err, InvalidStatef("already applied")))
	assert.False(t, errors.Is(err, InvalidStatef("already paid")))
	assert.False(t, errors.Is(err, Validationf("already applied")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, InvalidState.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, Validation.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, Unauthorized.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Internal.HTTPStatus())
}
