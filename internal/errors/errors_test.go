package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Parsef("line %d: bare quote", 3)

	assert.True(t, Is(err, ErrParse))
	assert.False(t, Is(err, ErrValidation))

	wrapped := fmt.Errorf("import: %w", err)
	assert.True(t, Is(wrapped, ErrParse))
}

func TestError_LoadInProgressIsConflict(t *testing.T) {
	assert.True(t, Is(ErrLoadInProgress, ErrConflict))
	assert.Equal(t, http.StatusConflict, ErrLoadInProgress.HTTPStatus())
}

func TestError_ParseUnwraps(t *testing.T) {
	err := Parse(io.ErrUnexpectedEOF, "read csv")

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "read csv: unexpected EOF", err.Error())
}

func TestError_WithDetailsKeepsCode(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]string{"field": "is required"})

	assert.Equal(t, CodeValidation, err.Code)
	assert.NotNil(t, err.Details)
	assert.Nil(t, ErrValidation.Details)
}

func TestValidationWithDetails(t *testing.T) {
	err := ValidationWithDetails("validation failed", map[string]string{"field": "is required"})

	assert.True(t, Is(err, ErrValidation))
	assert.Equal(t, "validation failed", err.Message)
	assert.Equal(t, map[string]string{"field": "is required"}, err.Details)
}

func TestWrapf(t *testing.T) {
	err := Wrapf(io.ErrShortWrite, CodeInternal, "export sheet %s", "sheet-1")

	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.True(t, Is(err, ErrInternal))
	assert.Equal(t, "export sheet sheet-1: short write", err.Error())
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodePosition, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeParse, http.StatusUnprocessableEntity},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}
