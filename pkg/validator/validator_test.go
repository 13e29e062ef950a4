package validator

import (
	"errors"
	"testing"

	"anoa.com/attachments/pkg/apperror"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fileMeta struct {
	Filename string `validate:"required"`
	Path     string `validate:"required,max=8"`
	Size     int64  `validate:"min=0"`
}

func TestFormatValidationErrorIsFieldScoped(t *testing.T) {
	err := validator.New().Struct(fileMeta{Path: "too-long-a-key", Size: -1})
	require.Error(t, err)

	formatted := FormatValidationError("attachment", err)

	joined, ok := formatted.(interface{ Unwrap() []error })
	require.True(t, ok)
	errs := joined.Unwrap()
	require.Len(t, errs, 3)

	var props []string
	for _, e := range errs {
		var appErr *apperror.AppError
		require.True(t, errors.As(e, &appErr))
		assert.Equal(t, 400, appErr.Status)
		props = append(props, appErr.PropertyName)
	}
	assert.Equal(t, []string{"attachment.filename", "attachment.path", "attachment.size"}, props)
}

func TestFormatValidationErrorWrapsOtherErrors(t *testing.T) {
	err := FormatValidationError("body", errors.New("unexpected EOF"))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "body", appErr.PropertyName)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
