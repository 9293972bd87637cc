package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindUnauthorized},
		{403, KindUnauthorized},
		{404, KindNotFound},
		{429, KindRateLimited},
		{500, KindTransient},
		{503, KindTransient},
		{400, KindOther},
		{409, KindOther},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, KindForStatus(tt.status))
		})
	}
}

func TestFromResponse(t *testing.T) {
	resp := &http.Response{StatusCode: 429, Header: http.Header{"Retry-After": []string{"30"}}}
	err := FromResponse("list subtasks", resp, " slow down ")

	assert.Equal(t, KindRateLimited, err.Kind)
	assert.Equal(t, 30*time.Second, err.RetryAfter)
	assert.Equal(t, "list subtasks: rate limited (HTTP 429): slow down", err.Error())

	resp = &http.Response{StatusCode: 404, Header: http.Header{}}
	err = FromResponse("rename task", resp, "")
	assert.Equal(t, "rename task: not found (HTTP 404)", err.Error())
	assert.Zero(t, err.RetryAfter)
}

func TestErrorIsSentinel(t *testing.T) {
	err := fmt.Errorf("fetch: %w", &Error{Kind: KindUnauthorized, Op: "list", Status: 401})

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, KindOther, KindOf(errors.New("plain")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&Error{Kind: KindUnauthorized}))
	assert.True(t, IsFatal(fmt.Errorf("x: %w", context.Canceled)))
	assert.False(t, IsFatal(&Error{Kind: KindTransient}))
	assert.False(t, IsFatal(&Error{Kind: KindNotFound}))
	assert.False(t, IsFatal(nil))
}

func TestFromTransport(t *testing.T) {
	err := FromTransport("list", errors.New("connection reset"))
	assert.Equal(t, KindTransient, KindOf(err))

	assert.ErrorIs(t, FromTransport("list", context.Canceled), context.Canceled)
	assert.Equal(t, KindOther, KindOf(FromTransport("list", context.Canceled)))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, 12*time.Second, ParseRetryAfter("12", now))
	assert.Zero(t, ParseRetryAfter("", now))
	assert.Zero(t, ParseRetryAfter("-3", now))
	assert.Zero(t, ParseRetryAfter("soon", now))

	date := now.Add(90 * time.Second).Format(http.TimeFormat)
	require.Equal(t, 90*time.Second, ParseRetryAfter(date, now))
	assert.Zero(t, ParseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}
