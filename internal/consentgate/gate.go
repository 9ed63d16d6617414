// internal/consentgate/gate.go

// Package consentgate implements the client-side enforcement gate that
// decides which screen a student session sees before reaching application
// content: the content itself, the link-to-teacher screen, or the waiting-
// for-parent-consent screen.
//
// The gate is a small state machine. Every check resolves to exactly one of
// none / need_teacher / need_consent / error; a failed check lands on error
// rather than falling back to none, so a transport outage can never grant
// an unenforced session.
package consentgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ludora/ludora-backend/internal/coalesce"
)

// Enforcement is the gate's resolved screen decision.
type Enforcement string

const (
	EnforcementNone        Enforcement = "none"
	EnforcementNeedTeacher Enforcement = "need_teacher"
	EnforcementNeedConsent Enforcement = "need_consent"
	EnforcementError       Enforcement = "error"
)

// serverStatusComplete is the consent-status value meaning "no enforcement";
// the gate maps it to EnforcementNone.
const serverStatusComplete = "complete"

// checkWindow is how long a completed status check is replayed to
// overlapping callers instead of issuing another request.
const checkWindow = 2 * time.Second

// CheckError captures why a status check failed.
type CheckError struct {
	Message        string    `json:"message"`
	OccurredAt     time.Time `json:"occurred_at"`
	IsNetworkError bool      `json:"is_network_error"`
	StatusCode     int       `json:"status_code,omitempty"`
}

// State is a snapshot of the gate.
type State struct {
	Loading          bool
	Enforcement      Enforcement
	NeedsTeacher     bool
	NeedsConsent     bool
	LinkedTeacherID  *uuid.UUID
	HasParentConsent bool
	Err              *CheckError
	LastChecked      time.Time
	RetryCount       int
}

// Config describes the session the gate protects.
type Config struct {
	BaseURL string
	// Token is the session's bearer token. Empty means unauthenticated.
	Token string
	// IsStudent marks the session as a student account; only student
	// sessions are subject to enforcement.
	IsStudent bool
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

// Gate polls the consent-status endpoint and tracks the enforcement state
// for one session. Safe for concurrent use.
type Gate struct {
	baseURL   string
	token     string
	isStudent bool
	client    *http.Client
	checks    *coalesce.Group

	mtx   sync.Mutex
	state State
}

type statusResponse struct {
	Status           string     `json:"status"`
	NeedsTeacher     bool       `json:"needs_teacher"`
	NeedsConsent     bool       `json:"needs_consent"`
	LinkedTeacherID  *uuid.UUID `json:"linked_teacher_id"`
	HasParentConsent bool       `json:"has_parent_consent"`
}

type apiErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func New(cfg Config) *Gate {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Gate{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		isStudent: cfg.IsStudent,
		client:    client,
		checks:    coalesce.New(checkWindow),
		state:     State{Loading: true},
	}
}

// Snapshot returns the current gate state.
func (g *Gate) Snapshot() State {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.state
}

// Check runs one status check and returns the resulting state.
//
// Sessions that are not authenticated students resolve to none without a
// network call. Any fetch failure resolves to error, never to none.
func (g *Gate) Check(ctx context.Context) (State, error) {
	return g.check(ctx, false)
}

// RefreshStatus re-runs the status check; used after an external event that
// may have changed enforcement (e.g. a parent granted consent).
func (g *Gate) RefreshStatus(ctx context.Context) (State, error) {
	g.checks.Forget(g.checkKey())
	return g.check(ctx, false)
}

// RetryCheck re-runs the status check after a failure and counts the retry.
func (g *Gate) RetryCheck(ctx context.Context) (State, error) {
	g.checks.Forget(g.checkKey())
	return g.check(ctx, true)
}

func (g *Gate) check(ctx context.Context, isRetry bool) (State, error) {
	if !g.isStudent || g.token == "" {
		g.mtx.Lock()
		g.state = State{
			Loading:     false,
			Enforcement: EnforcementNone,
			LastChecked: time.Now(),
			RetryCount:  g.state.RetryCount,
		}
		s := g.state
		g.mtx.Unlock()
		return s, nil
	}

	g.mtx.Lock()
	g.state.Loading = true
	if isRetry {
		g.state.RetryCount++
	}
	retries := g.state.RetryCount
	g.mtx.Unlock()

	v, err := g.checks.Do(g.checkKey(), func() (interface{}, error) {
		return g.fetchStatus(ctx)
	})

	now := time.Now()
	if err != nil {
		checkErr := classify(err, now)
		g.mtx.Lock()
		g.state = State{
			Loading:     false,
			Enforcement: EnforcementError,
			Err:         checkErr,
			LastChecked: now,
			RetryCount:  retries,
		}
		s := g.state
		g.mtx.Unlock()
		return s, err
	}

	resp := v.(*statusResponse)
	enforcement := Enforcement(resp.Status)
	if resp.Status == serverStatusComplete {
		enforcement = EnforcementNone
	}

	g.mtx.Lock()
	g.state = State{
		Loading:          false,
		Enforcement:      enforcement,
		NeedsTeacher:     resp.NeedsTeacher,
		NeedsConsent:     resp.NeedsConsent,
		LinkedTeacherID:  resp.LinkedTeacherID,
		HasParentConsent: resp.HasParentConsent,
		LastChecked:      now,
		RetryCount:       retries,
	}
	s := g.state
	g.mtx.Unlock()
	return s, nil
}

// LinkTeacher redeems an invitation code, then re-runs the status check so
// the gate lands on the post-link enforcement state (none or need_consent).
func (g *Gate) LinkTeacher(ctx context.Context, invitationCode string) (State, error) {
	code := strings.TrimSpace(invitationCode)
	if code == "" {
		return g.Snapshot(), &ValidationError{Message: "invitation code is required"}
	}

	body, err := json.Marshal(map[string]string{"invitation_code": code})
	if err != nil {
		return g.Snapshot(), err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/auth/link-teacher", bytes.NewReader(body))
	if err != nil {
		return g.Snapshot(), err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return g.Snapshot(), &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return g.Snapshot(), linkError(resp)
	}

	return g.RefreshStatus(ctx)
}

func (g *Gate) checkKey() string {
	return "consent-status:" + g.token
}

func (g *Gate) fetchStatus(ctx context.Context) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/v1/auth/consent-status", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode >= 500:
		return nil, &ServerError{StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("malformed consent status response: %w", err)
	}
	return &status, nil
}

func linkError(resp *http.Response) error {
	var body apiErrorBody
	data, _ := io.ReadAll(resp.Body)
	json.Unmarshal(data, &body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       body.Error.Code,
			Message:    "invitation code not found; check the code with your teacher",
		}
	case resp.StatusCode == http.StatusConflict || body.Error.Code == "ALREADY_LINKED":
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "ALREADY_LINKED",
			Message:    "this account is already linked to a teacher",
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       body.Error.Code,
			Message:    "too many attempts; wait a moment and try again",
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Message: body.Error.Message}
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode}
	default:
		return &APIError{StatusCode: resp.StatusCode, Code: body.Error.Code, Message: body.Error.Message}
	}
}

func readErrorMessage(r io.Reader) string {
	var body apiErrorBody
	data, _ := io.ReadAll(r)
	json.Unmarshal(data, &body)
	return body.Error.Message
}

func classify(err error, now time.Time) *CheckError {
	ce := &CheckError{
		Message:    err.Error(),
		OccurredAt: now,
	}

	switch e := err.(type) {
	case *NetworkError:
		ce.IsNetworkError = true
	case *AuthError:
		ce.StatusCode = e.StatusCode
	case *ServerError:
		ce.StatusCode = e.StatusCode
	case *APIError:
		ce.StatusCode = e.StatusCode
	}

	return ce
}
