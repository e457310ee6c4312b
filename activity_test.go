package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hungerlink/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiActivitySink_RecordsEverySink(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	boom := errors.New("sink down")

	calls := 0
	failing := auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		calls++
		return boom
	})

	sink := auth.MultiActivitySink{first, nil, failing, second}
	err := sink.Record(context.Background(), auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
		AccountID: "acct-1",
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, auth.ActivityEventLoginSuccess, second.events[0].EventType)
}

func TestActivitySinkFunc_NilIsNoop(t *testing.T) {
	var fn auth.ActivitySinkFunc
	assert.NoError(t, fn.Record(context.Background(), auth.ActivityEvent{}))
}
