package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "without cause",
			err:         NewAppError(ErrTypeConfig, "missing sources", nil),
			wantMessage: "[CONFIG] missing sources",
		},
		{
			name:        "with cause",
			err:         NewParsingError("bad header row", fmt.Errorf("empty sheet")),
			wantMessage: "[PARSING] bad header row: empty sheet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSourceError("county", "query failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, err.Unwrap())

	var appErr *AppError
	wrapped := fmt.Errorf("load: %w", err)
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrTypeSource, appErr.Type)
	assert.Equal(t, "county", appErr.Context["source"])
}

func TestAppError_WithContext(t *testing.T) {
	err := &AppError{Type: ErrTypeStorage, Message: "write failed"}
	err.WithContext("path", "/tmp/out.csv").WithContext("rows", 3)

	assert.Equal(t, "/tmp/out.csv", err.Context["path"])
	assert.Equal(t, 3, err.Context["rows"])
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
	}{
		{name: "source", err: NewSourceError("state", "read failed", nil), wantType: ErrTypeSource},
		{name: "parsing", err: NewParsingError("bad csv", nil), wantType: ErrTypeParsing},
		{name: "schema", err: NewSchemaError("state", errors.New("x")), wantType: ErrTypeSchema},
		{name: "storage", err: NewStorageError("disk full", nil), wantType: ErrTypeStorage},
		{name: "validation", err: NewAppError(ErrTypeValidation, "bad kind", nil), wantType: ErrTypeValidation},
		{name: "config", err: NewConfigError("bad port", nil), wantType: ErrTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.NotNil(t, tt.err.Context)
		})
	}
}
