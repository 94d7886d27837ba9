package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create profile: %w", DuplicateName("name", "profile with this name already exists"))

	assert.Equal(t, KindDuplicateName, KindOf(err))
	assert.True(t, Is(err, KindDuplicateName))
	assert.False(t, Is(err, KindNotFound))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestAsWrapsUnknown(t *testing.T) {
	cause := errors.New("disk full")
	e := As(cause)
	require.NotNil(t, e)
	assert.Equal(t, KindInternal, e.Kind)
	assert.ErrorIs(t, e, cause)
}

func TestClassificationUnavailableUnwraps(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ClassificationUnavailable(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestValidationMessageIncludesField(t *testing.T) {
	err := Validation("description", "description is required")
	assert.Equal(t, "validation: description is required (field description)", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindDuplicateName, http.StatusConflict},
		{KindClassificationUnavailable, http.StatusServiceUnavailable},
		{KindDeletionFailed, http.StatusInternalServerError},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.kind))
		})
	}
}
