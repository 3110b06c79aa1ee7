package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Format(t *testing.T) {
	cause := errors.New("boom")
	assert.Equal(t, "[not_found] table missing", New(ErrKindNotFound, "table missing").Error())
	assert.Equal(t, "[query_failed] select failed: boom", Wrap(ErrKindQueryFailed, "select failed", cause).Error())
	assert.Equal(t, "[invalid_input] bad limit 0", Newf(ErrKindInvalidInput, "bad limit %d", 0).Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(ErrKindTimeout, "slow", cause))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsTimeout(err))
	assert.Equal(t, ErrKindTimeout, KindOf(err))
	assert.Equal(t, ErrKindUnknown, KindOf(cause))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		kind ErrKind
		pred func(error) bool
	}{
		{ErrKindNotFound, IsNotFound},
		{ErrKindUnsupportedType, IsUnsupportedType},
		{ErrKindMalformedIdentifier, IsMalformedIdentifier},
		{ErrKindUniqueViolation, IsUniqueViolation},
		{ErrKindForeignKeyViolation, IsForeignKeyViolation},
		{ErrKindConnectionFailed, IsConnectionFailed},
		{ErrKindQueryFailed, IsQueryFailed},
		{ErrKindInvalidInput, IsInvalidInput},
		{ErrKindPermissionDenied, IsPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.True(t, tt.pred(New(tt.kind, "x")))
			assert.False(t, tt.pred(New(ErrKindUnknown, "x")))
		})
	}
	assert.True(t, IsConstraintViolation(New(ErrKindCheckViolation, "x")))
	assert.True(t, IsConstraintViolation(New(ErrKindUniqueViolation, "x")))
	assert.False(t, IsConstraintViolation(New(ErrKindQueryFailed, "x")))
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrKind
	}{
		{"unique", errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key"`), ErrKindUniqueViolation},
		{"foreign key", errors.New(`insert or update on table "posts" violates foreign key constraint "posts_user_id_fkey"`), ErrKindForeignKeyViolation},
		{"check", errors.New(`new row for relation "users" violates check constraint "age_positive"`), ErrKindCheckViolation},
		{"missing relation", errors.New(`relation "nope" does not exist`), ErrKindNotFound},
		{"missing sequence", errors.New(`sequence "users_id_seq" does not exist`), ErrKindNotFound},
		{"timeout", context.DeadlineExceeded, ErrKindTimeout},
		{"generic", errors.New("syntax error at or near"), ErrKindQueryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Translate(tt.err, "exec failed")
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestTranslate_PassThrough(t *testing.T) {
	assert.NoError(t, Translate(nil, "x"))
	orig := New(ErrKindInvalidInput, "bad")
	assert.Same(t, orig, Translate(orig, "ignored"))
}

func TestKindForSQLState(t *testing.T) {
	assert.Equal(t, ErrKindUniqueViolation, KindForSQLState("23505"))
	assert.Equal(t, ErrKindForeignKeyViolation, KindForSQLState("23503"))
	assert.Equal(t, ErrKindCheckViolation, KindForSQLState("23514"))
	assert.Equal(t, ErrKindNotFound, KindForSQLState("42P01"))
	assert.Equal(t, ErrKindConnectionFailed, KindForSQLState("08006"))
	assert.Equal(t, ErrKindQueryFailed, KindForSQLState("42601"))
}
