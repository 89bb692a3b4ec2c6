package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studygroups/internal/db"
	"studygroups/internal/db/repository"
	"studygroups/internal/domain"
	"studygroups/internal/middleware"
	"studygroups/internal/service/cleanup"
	"studygroups/internal/service/groups"
	"studygroups/internal/service/membership"
	"studygroups/internal/service/notify"
)

const testSecret = "handler-test-secret-32-bytes-xxx"

type captureSender struct {
	mu   sync.Mutex
	sent []notify.Email
	err  error
}

func (c *captureSender) Send(_ context.Context, e notify.Email) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, e)
	return c.err
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type testServer struct {
	handler http.Handler
	sender  *captureSender
}

// newTestServer wires the full stack (real SQLite store, real services) with
// captured email delivery and HS256 auth.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	writeDB, readDB := db.OpenTestSQLite(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	emails := domain.NewEmailPolicy(nil)

	groupRepo := repository.NewStudyGroupRepo(writeDB, readDB)
	participantRepo := repository.NewParticipantRepo(writeDB, readDB)

	sender := &captureSender{}
	notifier := notify.New(sender, logger)

	groupsSvc := groups.NewService(groupRepo, participantRepo, emails, logger)
	membershipSvc := membership.NewService(groupRepo, participantRepo, emails, notifier, logger)
	sweeper := cleanup.NewSweeper(groupRepo, logger)

	h := NewHandler(groupsSvc, membershipSvc, sweeper, logger)

	validator, err := middleware.NewHS256Validator(testSecret)
	require.NoError(t, err)
	authn := middleware.NewAuthenticator(validator, "email", logger)

	return &testServer{
		handler: authn.Middleware(h.Routes()),
		sender:  sender,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func tokenFor(email string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := tok.SignedString([]byte(testSecret))
	return signed
}

func groupBody(organizerEmail string, limit *int) map[string]any {
	return map[string]any{
		"subject":         "Organic Chemistry",
		"description":     "Midterm prep",
		"professor_name":  "Dr. Chen",
		"location":        "Butler 403",
		"start_time":      time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339),
		"end_time":        time.Now().Add(4 * time.Hour).UTC().Format(time.RFC3339),
		"student_limit":   limit,
		"organizer_name":  "Org",
		"organizer_email": organizerEmail,
	}
}

func (ts *testServer) createGroup(t *testing.T, organizerEmail string, limit *int) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/v1/groups", "", groupBody(organizerEmail, limit))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	return created.ID
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateGroup(t *testing.T) {
	ts := newTestServer(t)
	limit := 5
	rec := ts.do(t, http.MethodPost, "/v1/groups", "", groupBody("org@columbia.edu", &limit))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Organic Chemistry", created["subject"])
	assert.Equal(t, "org@columbia.edu", created["organizer_email"])
	assert.NotEmpty(t, created["expires_at"])
}

func TestCreateGroup_Validation(t *testing.T) {
	ts := newTestServer(t)

	body := groupBody("org@columbia.edu", nil)
	body["end_time"] = body["start_time"]
	rec := ts.do(t, http.MethodPost, "/v1/groups", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "end_time must be after start_time")

	rec = ts.do(t, http.MethodPost, "/v1/groups", "", groupBody("org@gmail.com", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/groups", strings.NewReader("{not json"))
	bad := httptest.NewRecorder()
	ts.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestListGroups_PublicProjection(t *testing.T) {
	ts := newTestServer(t)
	ts.createGroup(t, "org@columbia.edu", nil)

	rec := ts.do(t, http.MethodGet, "/v1/groups", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "organizer_email")

	var resp struct {
		Groups []map[string]any `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, false, resp.Groups[0]["is_full"])
}

func TestGetGroup(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGroup(t, "org@columbia.edu", nil)

	rec := ts.do(t, http.MethodGet, "/v1/groups/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "organizer_email")

	rec = ts.do(t, http.MethodGet, "/v1/groups/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteGroup_OrganizerOnly(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGroup(t, "org@columbia.edu", nil)

	// No token.
	rec := ts.do(t, http.MethodDelete, "/v1/groups/"+id, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong identity.
	rec = ts.do(t, http.MethodDelete, "/v1/groups/"+id, tokenFor("other@columbia.edu"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Organizer.
	rec = ts.do(t, http.MethodDelete, "/v1/groups/"+id, tokenFor("org@columbia.edu"), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/groups/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrganizerGroups(t *testing.T) {
	ts := newTestServer(t)
	ts.createGroup(t, "org@columbia.edu", nil)
	ts.createGroup(t, "other@barnard.edu", nil)

	rec := ts.do(t, http.MethodGet, "/v1/organizer/groups", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/organizer/groups", tokenFor("org@columbia.edu"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Groups []map[string]any `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, "org@columbia.edu", resp.Groups[0]["organizer_email"])
}

func TestJoinGroup(t *testing.T) {
	ts := newTestServer(t)
	limit := 2
	id := ts.createGroup(t, "org@columbia.edu", &limit)

	join := func(name, email string) *httptest.ResponseRecorder {
		return ts.do(t, http.MethodPost, "/v1/groups/"+id+"/participants", "", map[string]string{
			"name": name, "email": email,
		})
	}

	rec := join("Jane", "jane@columbia.edu")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Duplicate join.
	rec = join("Jane", "jane@columbia.edu")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Disallowed domain.
	rec = join("Eve", "eve@gmail.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Fill the last seat, then overflow.
	rec = join("Bob", "bob@barnard.edu")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = join("Late", "late@columbia.edu")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "full")

	// Unknown group.
	rec = ts.do(t, http.MethodPost, "/v1/groups/missing/participants", "", map[string]string{
		"name": "X", "email": "x@columbia.edu",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Join notifications went out in the background.
	require.Eventually(t, func() bool {
		return ts.sender.count() >= 4
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLeaveGroup(t *testing.T) {
	ts := newTestServer(t)
	limit := 1
	id := ts.createGroup(t, "org@columbia.edu", &limit)

	rec := ts.do(t, http.MethodPost, "/v1/groups/"+id+"/participants", "", map[string]string{
		"name": "Jane", "email": "jane@columbia.edu",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/v1/groups/"+id+"/participants", "", map[string]string{
		"email": "jane@columbia.edu",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Leaving again: no longer a member.
	rec = ts.do(t, http.MethodDelete, "/v1/groups/"+id+"/participants", "", map[string]string{
		"email": "jane@columbia.edu",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The freed seat is joinable.
	rec = ts.do(t, http.MethodPost, "/v1/groups/"+id+"/participants", "", map[string]string{
		"name": "Bob", "email": "bob@columbia.edu",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListParticipants_MemberScoped(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGroup(t, "org@columbia.edu", nil)

	rec := ts.do(t, http.MethodPost, "/v1/groups/"+id+"/participants", "", map[string]string{
		"name": "Jane", "email": "jane@columbia.edu",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Member sees the list.
	rec = ts.do(t, http.MethodGet, "/v1/groups/"+id+"/participants?email=jane@columbia.edu", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jane@columbia.edu")

	// The organizer sees it via their verified identity.
	rec = ts.do(t, http.MethodGet, "/v1/groups/"+id+"/participants", tokenFor("org@columbia.edu"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A non-member does not.
	rec = ts.do(t, http.MethodGet, "/v1/groups/"+id+"/participants?email=outsider@columbia.edu", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No identity at all.
	rec = ts.do(t, http.MethodGet, "/v1/groups/"+id+"/participants", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestParticipantJoinedNotification(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGroup(t, "org@columbia.edu", nil)

	notifyURL := "/v1/notifications/participant-joined"

	// Missing fields.
	rec := ts.do(t, http.MethodPost, notifyURL, "", map[string]string{
		"study_group_id": id,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing required fields")

	// Unknown group.
	rec = ts.do(t, http.MethodPost, notifyURL, "", map[string]string{
		"study_group_id":    "missing",
		"participant_name":  "Jane",
		"participant_email": "jane@columbia.edu",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Study group not found")

	// Success.
	rec = ts.do(t, http.MethodPost, notifyURL, "", map[string]string{
		"study_group_id":    id,
		"participant_name":  "Jane",
		"participant_email": "jane@columbia.edu",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "true")
	assert.Equal(t, 2, ts.sender.count())
}

func TestParticipantJoinedNotification_MailFailureStillSucceeds(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGroup(t, "org@columbia.edu", nil)
	ts.sender.err = fmt.Errorf("smtp down")

	rec := ts.do(t, http.MethodPost, "/v1/notifications/participant-joined", "", map[string]string{
		"study_group_id":    id,
		"participant_name":  "Jane",
		"participant_email": "jane@columbia.edu",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSweep(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/admin/sweep", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/v1/admin/sweep", tokenFor("admin@columbia.edu"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Removed int64 `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Removed)
}
