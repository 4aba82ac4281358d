package apperror

import (
	"errors"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestAsUnwrapsWrappedAppError(t *testing.T) {
	base := NotFound("lease not found")
	wrapped := pkgerrors.Wrap(base, "loading lease")

	got := As(wrapped)
	assert.Same(t, base, got)
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
	assert.Equal(t, CodeNotFound, got.Code)
}

func TestAsHidesUnknownErrors(t *testing.T) {
	cause := errors.New("pq: connection refused")

	got := As(cause)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	assert.Equal(t, "internal server error", got.Message)
	assert.ErrorIs(t, got, cause)
}

func TestInternalKeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := Internal(CodeLeaseCreate, "failed to create lease", cause)

	assert.Equal(t, "failed to create lease", err.Message)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.ErrorIs(t, err, cause)
}
