package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	// Concurrent first submissions for an errand race past the row-lock
	// check; the duplicate insert must classify as a unique violation so
	// Create can return ErrPaymentPendingExists instead of a raw error.
	dup := &pq.Error{Code: "23505", Constraint: "uniq_errand_payments_live"}
	assert.True(t, isUniqueViolation(dup))
	assert.True(t, isUniqueViolation(fmt.Errorf("payment repository: create insert %w", dup)))

	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(nil))
}
