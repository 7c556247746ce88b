package source

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAsThrottled(t *testing.T) {
	te := &ThrottledError{RetryAfter: 5 * time.Second}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "direct", err: te, want: true},
		{name: "wrapped", err: fmt.Errorf("collect posts: %w", te), want: true},
		{name: "doubly wrapped", err: fmt.Errorf("scan: %w", fmt.Errorf("collect: %w", te)), want: true},
		{name: "unrelated", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsThrottled(tt.err)
			if ok != tt.want {
				t.Fatalf("AsThrottled = %v, want %v", ok, tt.want)
			}
			if ok && got.RetryAfter != te.RetryAfter {
				t.Errorf("RetryAfter = %s, want %s", got.RetryAfter, te.RetryAfter)
			}
		})
	}
}

func TestIsAccessDenied(t *testing.T) {
	ae := &AccessDeniedError{Resource: "channel secrets"}

	if !IsAccessDenied(ae) {
		t.Error("direct access-denied not detected")
	}
	if !IsAccessDenied(fmt.Errorf("channel: %w", ae)) {
		t.Error("wrapped access-denied not detected")
	}
	if IsAccessDenied(errors.New("boom")) {
		t.Error("unrelated error misreported as access-denied")
	}
	if IsAccessDenied(nil) {
		t.Error("nil misreported as access-denied")
	}
}

func TestThrottledErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ThrottledError
		want string
	}{
		{
			name: "with deadline",
			err:  &ThrottledError{ResetAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)},
			want: "throttled until 2026-08-30T12:00:00Z",
		},
		{
			name: "with retry-after",
			err:  &ThrottledError{RetryAfter: 30 * time.Second},
			want: "throttled, retry after 30s",
		},
		{name: "no hint", err: &ThrottledError{}, want: "throttled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
