package repository_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dimz119/project-saeum/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, repository.IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, repository.IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, repository.IsUniqueViolation(errors.New("UNIQUE constraint failed: payments.transaction_id")))
	assert.True(t, repository.IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "idx_payments_transaction_id"`)))

	assert.False(t, repository.IsUniqueViolation(nil))
	assert.False(t, repository.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, repository.IsUniqueViolation(errors.New("connection refused")))
}
