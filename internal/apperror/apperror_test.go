package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessages(t *testing.T) {
	assert.Equal(t, "Invoice with id 42 not found", NotFound("Invoice", 42).Error())
	assert.Equal(t, "School with name=Acme in MX already exists", AlreadyExists("School", "name", "Acme in MX").Error())
	assert.Equal(t, "Cannot update voided invoice", InvalidOperation("Cannot update voided invoice").Error())
	assert.Equal(t, "Failed to create payment", Storage("create payment", errors.New("conn reset")).Error())
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("Student", 7))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestWrapKeepsTaxonomyErrors(t *testing.T) {
	orig := Validation("bad")
	assert.Same(t, orig, Wrap("x", orig))

	cause := errors.New("disk full")
	wrapped := Wrap("update invoice", cause)
	assert.True(t, IsStorage(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "Failed to update invoice", wrapped.Error())
	assert.NoError(t, Wrap("noop", nil))
}
