// internal/consentgate/gate_test.go
package consentgate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatusServer(t *testing.T, statusCalls *int64, status func() statusResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/consent-status":
			atomic.AddInt64(statusCalls, 1)
			json.NewEncoder(w).Encode(status())
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestNonStudentResolvesWithoutNetwork(t *testing.T) {
	var statusCalls int64
	srv := newStatusServer(t, &statusCalls, func() statusResponse {
		return statusResponse{Status: "need_teacher"}
	})
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "tok", IsStudent: false})

	state, err := gate.Check(context.Background())

	require.NoError(t, err)
	assert.Equal(t, EnforcementNone, state.Enforcement)
	assert.False(t, state.Loading)
	assert.Equal(t, int64(0), atomic.LoadInt64(&statusCalls))
}

func TestUnauthenticatedResolvesWithoutNetwork(t *testing.T) {
	var statusCalls int64
	srv := newStatusServer(t, &statusCalls, func() statusResponse {
		return statusResponse{Status: "complete"}
	})
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "", IsStudent: true})

	state, err := gate.Check(context.Background())

	require.NoError(t, err)
	assert.Equal(t, EnforcementNone, state.Enforcement)
	assert.Equal(t, int64(0), atomic.LoadInt64(&statusCalls))
}

func TestCompleteMapsToNone(t *testing.T) {
	var statusCalls int64
	srv := newStatusServer(t, &statusCalls, func() statusResponse {
		return statusResponse{Status: "complete", HasParentConsent: true}
	})
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "tok", IsStudent: true})

	state, err := gate.Check(context.Background())

	require.NoError(t, err)
	assert.Equal(t, EnforcementNone, state.Enforcement)
	assert.True(t, state.HasParentConsent)
	assert.False(t, state.LastChecked.IsZero())
}

func TestNeedTeacherPassesThrough(t *testing.T) {
	var statusCalls int64
	srv := newStatusServer(t, &statusCalls, func() statusResponse {
		return statusResponse{Status: "need_teacher", NeedsTeacher: true, NeedsConsent: true}
	})
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "tok", IsStudent: true})

	state, err := gate.Check(context.Background())

	require.NoError(t, err)
	// need_teacher wins even when both flags are set.
	assert.Equal(t, EnforcementNeedTeacher, state.Enforcement)
	assert.True(t, state.NeedsTeacher)
}

func TestNetworkErrorResolvesToErrorState(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	gate := New(Config{BaseURL: url, Token: "tok", IsStudent: true})

	state, err := gate.Check(context.Background())

	require.Error(t, err)
	assert.Equal(t, EnforcementError, state.Enforcement)
	require.NotNil(t, state.Err)
	assert.True(t, state.Err.IsNetworkError)
	assert.False(t, state.Err.OccurredAt.IsZero())

	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestAuthErrorResolvesToErrorState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "expired", IsStudent: true})

	state, err := gate.Check(context.Background())

	require.Error(t, err)
	assert.Equal(t, EnforcementError, state.Enforcement)
	require.NotNil(t, state.Err)
	assert.False(t, state.Err.IsNetworkError)
	assert.Equal(t, http.StatusUnauthorized, state.Err.StatusCode)
}

func TestServerErrorDoesNotFallBackToNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "tok", IsStudent: true})

	state, err := gate.Check(context.Background())

	require.Error(t, err)
	assert.Equal(t, EnforcementError, state.Enforcement)
	assert.NotEqual(t, EnforcementNone, state.Enforcement)
}

func TestLinkTeacherRerunsStatusCheck(t *testing.T) {
	var statusCalls, linkCalls int64
	linked := atomic.Bool{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/consent-status":
			atomic.AddInt64(&statusCalls, 1)
			status := statusResponse{Status: "need_teacher", NeedsTeacher: true}
			if linked.Load() {
				status = statusResponse{Status: "need_consent", NeedsConsent: true}
			}
			json.NewEncoder(w).Encode(status)
		case "/v1/auth/link-teacher":
			atomic.AddInt64(&linkCalls, 1)
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "ABC123XY", body["invitation_code"])
			linked.Store(true)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
		}
	}))
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "tok", IsStudent: true})

	state, err := gate.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EnforcementNeedTeacher, state.Enforcement)

	state, err = gate.LinkTeacher(context.Background(), "ABC123XY")
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&linkCalls))
	assert.Equal(t, int64(2), atomic.LoadInt64(&statusCalls), "link success must trigger a second status fetch")
	assert.Equal(t, EnforcementNeedConsent, state.Enforcement)
}

func TestLinkTeacherEmptyCode(t *testing.T) {
	gate := New(Config{BaseURL: "http://unused", Token: "tok", IsStudent: true})

	_, err := gate.LinkTeacher(context.Background(), "   ")

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestLinkTeacherAlreadyLinked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "ALREADY_LINKED", "message": "already linked"},
		})
	}))
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "tok", IsStudent: true})

	_, err := gate.LinkTeacher(context.Background(), "ABC123XY")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "ALREADY_LINKED", apiErr.Code)
}

func TestLinkTeacherInvalidCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "tok", IsStudent: true})

	_, err := gate.LinkTeacher(context.Background(), "WRONGCOD")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestLinkTeacherRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "tok", IsStudent: true})

	_, err := gate.LinkTeacher(context.Background(), "ABC123XY")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestRetryCheckCountsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "tok", IsStudent: true})

	gate.Check(context.Background())
	gate.RetryCheck(context.Background())
	state, _ := gate.RetryCheck(context.Background())

	assert.Equal(t, 2, state.RetryCount)
}

func TestCancelledContext(t *testing.T) {
	srv := newStatusServer(t, new(int64), func() statusResponse {
		return statusResponse{Status: "complete"}
	})
	defer srv.Close()

	gate := New(Config{BaseURL: srv.URL, Token: "tok", IsStudent: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := gate.Check(ctx)

	require.Error(t, err)
	assert.Equal(t, EnforcementError, state.Enforcement)
}
