package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapHTTPErrorExtractsBackendMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Invalid credentials"}`, "Invalid credentials"},
		{"error string", `{"error":"token expired"}`, "token expired"},
		{"nested error", `{"error":{"message":"nope"}}`, "nope"},
		{"plain text", `upstream down`, "upstream down"},
		{"empty", ``, "Invalid authentication"},
		{"json without message", `{"ok":false}`, "Invalid authentication"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := MapHTTPError(http.StatusUnauthorized, []byte(tc.body))
			require.Equal(t, "unauthenticated", e.Code)
			require.Equal(t, tc.want, e.Message)
		})
	}
}

func TestMapNetworkError(t *testing.T) {
	require.Equal(t, "request_canceled", MapNetworkError(fmt.Errorf("do: %w", context.Canceled)).Code)
	require.Equal(t, "timeout", MapNetworkError(context.DeadlineExceeded).Code)
	require.Equal(t, "connection_error", MapNetworkError(stderrors.New("dial tcp: connection refused")).Code)
	require.Equal(t, "dns_error", MapNetworkError(stderrors.New("lookup api: no such host")).Code)
	require.Equal(t, "network_error", MapNetworkError(stderrors.New("boom")).Code)
}

func TestRenewalErrorMatchesSessionExpired(t *testing.T) {
	cause := NewNetworkError(http.MethodGet, "/auth/refresh", stderrors.New("connection refused"))
	err := fmt.Errorf("dispatch: %w", &RenewalError{Cause: cause})

	require.ErrorIs(t, err, ErrSessionExpired)
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	require.True(t, IsAuth(err))
}

func TestStatusErrorHelpers(t *testing.T) {
	err := NewStatusError(http.MethodGet, "/admin/stats", http.StatusForbidden, []byte(`{"message":"admins only"}`))
	require.Equal(t, http.StatusForbidden, StatusCode(err))
	require.Contains(t, err.Error(), "admins only")
	require.True(t, IsAuth(err))
	require.Equal(t, 0, StatusCode(stderrors.New("x")))
}
