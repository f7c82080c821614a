package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/abase/abase-manager/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, errors.Wrapf(nil, "context %d", 1))

	err := errors.Wrapf(errors.ErrInvalidCredentials, "login %s", "ana")
	require.EqualError(t, err, "login ana: invalid credentials")
	require.True(t, errors.Is(err, errors.ErrInvalidCredentials))
}

type statusErr struct{ code int }

func (s *statusErr) Error() string { return "status" }

func TestJoinKeepsBothChains(t *testing.T) {
	cause := &statusErr{code: 400}
	err := errors.Join(errors.ErrCallback, cause)

	require.True(t, errors.Is(err, errors.ErrCallback))
	var target *statusErr
	require.True(t, errors.As(err, &target))
	require.Equal(t, 400, target.code)
	require.False(t, stderrors.Is(err, errors.ErrTransport))
}

func TestIsContextDone(t *testing.T) {
	require.True(t, errors.IsContextDone(context.Canceled))
	require.True(t, errors.IsContextDone(fmt.Errorf("refresh: %w", context.DeadlineExceeded)))
	require.False(t, errors.IsContextDone(errors.ErrUnauthorized))
	require.False(t, errors.IsContextDone(nil))
}
