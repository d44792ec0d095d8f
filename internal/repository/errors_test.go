package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "no rows", err: pgx.ErrNoRows, target: ErrNotFound},
		{name: "foreign key", err: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, Detail: "Key (customer_id)=(9) is not present"}, target: ErrNotFound},
		{name: "unique", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, target: ErrConflict},
		{name: "check", err: &pgconn.PgError{Code: pgerrcode.CheckViolation}, target: ErrConflict},
		{name: "too long", err: &pgconn.PgError{Code: pgerrcode.StringDataRightTruncationDataException}, target: ErrConflict},
		{name: "admin shutdown", err: &pgconn.PgError{Code: pgerrcode.AdminShutdown}, target: ErrUnavailable},
		{name: "cannot connect", err: &pgconn.PgError{Code: pgerrcode.CannotConnectNow}, target: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPostgresError(tt.err)
			require.Error(t, got)
			assert.ErrorIs(t, got, tt.target)
		})
	}
}

func TestMapPostgresErrorPassesThroughUnknown(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, plain, mapPostgresError(plain))
	assert.Nil(t, mapPostgresError(nil))
	assert.ErrorIs(t, mapPostgresError(context.Canceled), context.Canceled)
	assert.NotErrorIs(t, mapPostgresError(context.Canceled), ErrUnavailable)
}

func TestWrapKeepsSentinel(t *testing.T) {
	err := wrap("get organization", pgx.ErrNoRows)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "failed to get organization")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, "Acme", escapeLike("Acme"))
}
