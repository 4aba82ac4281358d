package validate

import (
	"context"
	"net/http"
	"testing"

	"github.com/suteetoe/leasedesk/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID uint `json:"id" validate:"required"`
}

type request struct {
	Name  string `json:"name" validate:"required"`
	Items []item `json:"items" validate:"required,min=1,dive"`
}

func TestStruct(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, Struct(ctx, request{Name: "a", Items: []item{{ID: 1}}}))

	err := Struct(ctx, request{Items: []item{}})
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Message, "name: failed 'required'")
	assert.Contains(t, appErr.Message, "items: failed 'min=1'")

	err = Struct(ctx, request{Name: "a", Items: []item{{}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items[0].id: failed 'required'")
}
