package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("confirm booking: %w", NewConflictError("slot taken"))

	assert.True(t, IsConflict(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, ErrCodeConflict, CodeOf(err))
}

func TestInvalidStateIsValidation(t *testing.T) {
	err := NewInvalidStateError("completed", "cancelled")

	assert.True(t, IsValidation(err))
	assert.Equal(t, "INVALID_STATE: cannot transition from completed to cancelled", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("boom")))
	assert.False(t, IsDomainError(nil))
}

func TestNewPaginatedResult(t *testing.T) {
	res := NewPaginatedResult([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, res.TotalPages)

	empty := NewPaginatedResult([]int{}, 0, 1, 0)
	assert.Equal(t, 0, empty.TotalPages)
}
