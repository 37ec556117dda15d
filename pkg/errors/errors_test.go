package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinelIdentity(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, ErrSourceUnavailable.Code, ErrSourceUnavailable.Status, "fetch schedule")

	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStorage)
}

func TestFromErrorNormalises(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := errors.New("boom")
	normalised := FromError(plain)
	require.NotNil(t, normalised)
	assert.Equal(t, ErrInternal.Code, normalised.Code)
	assert.Equal(t, http.StatusInternalServerError, normalised.Status)

	typed := FromError(fmt.Errorf("outer: %w", ErrNotFound))
	assert.Equal(t, ErrNotFound.Code, typed.Code)
}

func TestCloneOverridesMessageOnly(t *testing.T) {
	clone := Clone(ErrValidation, "date must be formatted YYYY-MM-DD")
	assert.Equal(t, ErrValidation.Code, clone.Code)
	assert.Equal(t, ErrValidation.Status, clone.Status)
	assert.Equal(t, "date must be formatted YYYY-MM-DD", clone.Message)
	assert.ErrorIs(t, clone, ErrValidation)
}
