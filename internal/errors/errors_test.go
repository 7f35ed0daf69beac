package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSetsStatusFromCode(t *testing.T) {
	err := New(ErrCodeUnknownEntity, "device not found")
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
	assert.Equal(t, "[UNKNOWN_ENTITY] device not found", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrCodeCollectionTransient, "poll failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestWithDetailsAccumulates(t *testing.T) {
	err := New(ErrCodeValidation, "bad input").WithDetails("field", "device_id")
	assert.Equal(t, "device_id", err.Details["field"])
}

func TestUnknownEntityHelper(t *testing.T) {
	err := UnknownEntity("alert", "a1")
	assert.Equal(t, ErrCodeUnknownEntity, err.Code)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
}

func TestInvalidTaskKindHelper(t *testing.T) {
	err := InvalidTaskKind("discovery", "bogus")
	assert.Equal(t, ErrCodeInvalidTaskKind, err.Code)
	assert.Contains(t, err.Message, "bogus")
}
