// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lumina/internal/auth"
	"github.com/taibuivan/lumina/internal/authctx"
	"github.com/taibuivan/lumina/internal/cookie"
	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/identity/identityfake"
	"github.com/taibuivan/lumina/internal/oauth"
	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/session"
	"github.com/taibuivan/lumina/internal/session/sessionfake"
)

type stubFederator struct {
	input  oauth.CallbackInput
	result *oauth.Result
	err    error
}

func (s *stubFederator) Callback(_ context.Context, input oauth.CallbackInput) (*oauth.Result, error) {
	s.input = input
	return s.result, s.err
}

type fixture struct {
	handlers  map[string]pipeline.Handler
	accounts  *identityfake.Repository
	store     *sessionfake.Repository
	sessions  *session.Service
	federator *stubFederator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		accounts:  identityfake.New(),
		store:     sessionfake.New(),
		federator: &stubFederator{},
	}
	f.sessions = session.NewService(f.store, time.Hour)
	identities := identity.NewService(f.accounts, identityfake.NewTokenStore())

	handler := auth.NewHandler(identities, f.sessions, f.federator, cookie.NewCodec("", true), nil, true)
	f.handlers = handler.Handlers()
	return f
}

func (f *fixture) call(t *testing.T, name string, request *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	handler, ok := f.handlers[name]
	require.True(t, ok, name)
	recorder := httptest.NewRecorder()
	return recorder, handler(recorder, request)
}

func post(body string) *http.Request {
	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	request.Header.Set("User-Agent", "test-agent")
	request.Header.Set(constants.HeaderXRealIP, "203.0.113.9")
	return request
}

func withSession(request *http.Request, s *session.Session, account *identity.Account) *http.Request {
	return request.WithContext(authctx.With(request.Context(), &authctx.AuthContext{Session: s, Account: account}))
}

func decodeData(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func sessionCookie(recorder *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range recorder.Result().Cookies() {
		if c.Name == constants.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestRegisterSignsInAndVerifies(t *testing.T) {
	f := newFixture(t)

	recorder, err := f.call(t, "auth.register", post(`{"email":"Lan@Example.com","password":"secret123","displayName":"Lan"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	data := decodeData(t, recorder)
	assert.Equal(t, true, data["created"])
	token, _ := data["verificationToken"].(string)
	require.NotEmpty(t, token)

	c := sessionCookie(recorder)
	require.NotNil(t, c)
	assert.Equal(t, data["session"], c.Value)
	assert.True(t, c.HttpOnly)

	stored, err := f.sessions.Verify(context.Background(), c.Value)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", stored.IP)
	assert.Equal(t, "test-agent", stored.UserAgent)

	recorder, err = f.call(t, "auth.verify_email", post(`{"token":"`+token+`"}`))
	require.NoError(t, err)
	assert.Equal(t, true, decodeData(t, recorder)["emailVerified"])

	_, err = f.call(t, "auth.verify_email", post(`{"token":"`+token+`"}`))
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation), "tokens are single use")
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.accounts.Seed(identity.Account{Email: "lan@example.com", Kind: identity.KindStudent})

	_, err := f.call(t, "auth.register", post(`{"email":"lan@example.com","password":"secret123","displayName":"Lan"}`))
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
	assert.Equal(t, 0, f.store.Len())
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	_, err := f.call(t, "auth.register", post(`{"email":"lan@example.com","password":"secret123","displayName":"Lan"}`))
	require.NoError(t, err)

	_, err = f.call(t, "auth.login", post(`{"email":"lan@example.com","password":"wrong-pass1"}`))
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthenticated))

	_, err = f.call(t, "auth.login", post(`{"email":"nobody@example.com","password":"secret123"}`))
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthenticated))

	recorder, err := f.call(t, "auth.login", post(`{"email":"LAN@example.com","password":"secret123","deviceInfo":"Lan's tablet"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, recorder.Code)

	data := decodeData(t, recorder)
	assert.Equal(t, false, data["created"])
	assert.NotContains(t, data, "verificationToken")

	stored, err := f.sessions.Verify(context.Background(), data["session"].(string))
	require.NoError(t, err)
	assert.Equal(t, "Lan's tablet", stored.UserAgent)
}

func TestLoginKeepsDeviceFamily(t *testing.T) {
	f := newFixture(t)
	recorder, err := f.call(t, "auth.register", post(`{"email":"lan@example.com","password":"secret123","displayName":"Lan"}`))
	require.NoError(t, err)
	current, err := f.sessions.Verify(context.Background(), decodeData(t, recorder)["session"].(string))
	require.NoError(t, err)
	account, err := f.accounts.FindAccountByID(context.Background(), current.AccountID)
	require.NoError(t, err)

	recorder, err = f.call(t, "auth.login", withSession(post(`{"email":"lan@example.com","password":"secret123"}`), current, account))
	require.NoError(t, err)

	again, err := f.sessions.Verify(context.Background(), decodeData(t, recorder)["session"].(string))
	require.NoError(t, err)
	assert.Equal(t, current.GroupID, again.GroupID)
	assert.NotEqual(t, current.ID, again.ID)
}

func TestLoginSessionStoreDown(t *testing.T) {
	f := newFixture(t)
	_, err := f.call(t, "auth.register", post(`{"email":"lan@example.com","password":"secret123","displayName":"Lan"}`))
	require.NoError(t, err)

	f.store.SetDown(true)
	recorder, err := f.call(t, "auth.login", post(`{"email":"lan@example.com","password":"secret123"}`))
	assert.True(t, apperr.HasCode(err, apperr.CodeInternal))
	assert.Nil(t, sessionCookie(recorder))
}

func TestOAuthCallback(t *testing.T) {
	f := newFixture(t)
	issued := &session.Session{ID: strings.Repeat("a", 43), AccountID: "acc-1", ExpiresAt: time.Now().Add(time.Hour)}
	f.federator.result = &oauth.Result{
		Session: issued,
		Account: &identity.Account{ID: "acc-1", Email: "lan@example.com"},
		Created: true,
		Outcome: oauth.OutcomeCreated,
	}

	recorder, err := f.call(t, "auth.oauth_callback", post(`{"provider":"github","code":"abc","emailByOAuthProvider":"lan@example.com"}`))
	require.NoError(t, err)

	assert.Equal(t, oauth.CallbackInput{
		Provider:      "github",
		Code:          "abc",
		EmailOverride: "lan@example.com",
		IP:            "203.0.113.9",
		UserAgent:     "test-agent",
	}, f.federator.input)

	data := decodeData(t, recorder)
	assert.Equal(t, issued.ID, data["session"])
	assert.Equal(t, float64(issued.ExpiresAt.Unix()), data["expireAt"])
	assert.Equal(t, true, data["created"])
	require.NotNil(t, sessionCookie(recorder))
}

func TestOAuthCallbackEmailRequired(t *testing.T) {
	f := newFixture(t)
	f.federator.err = apperr.OAuthEmailRequired("ticket-1")

	recorder, err := f.call(t, "auth.oauth_callback", post(`{"provider":"facebook","code":"abc"}`))
	assert.True(t, apperr.HasCode(err, apperr.CodeOAuthEmailRequired))
	assert.Nil(t, sessionCookie(recorder))
}

func TestOAuthCallbackPassesCurrentSession(t *testing.T) {
	f := newFixture(t)
	f.federator.err = apperr.ValidationError("stop")
	current := &session.Session{ID: "s-1", AccountID: "acc-1", GroupID: "g-1"}

	_, err := f.call(t, "auth.oauth_callback", withSession(post(`{"provider":"github","ticket":"t"}`), current, nil))
	require.Error(t, err)
	assert.Same(t, current, f.federator.input.Current)
	assert.Equal(t, "t", f.federator.input.Ticket)
}

func TestMalformedBody(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"auth.register", "auth.login", "auth.oauth_callback", "auth.verify_email"} {
		_, err := f.call(t, name, post(`{`))
		assert.True(t, apperr.HasCode(err, apperr.CodeValidation), name)
	}
}

func TestLogoutAndSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.sessions.Create(ctx, session.NewSession{AccountID: "acc-1", UserAgent: "phone"})
	require.NoError(t, err)
	second, err := f.sessions.Create(ctx, session.NewSession{AccountID: "acc-1", GroupID: first.GroupID, UserAgent: "laptop"})
	require.NoError(t, err)
	other, err := f.sessions.Create(ctx, session.NewSession{AccountID: "acc-1", UserAgent: "tv"})
	require.NoError(t, err)

	recorder, err := f.call(t, "auth.sessions", withSession(httptest.NewRequest(http.MethodGet, "/", nil), second, nil))
	require.NoError(t, err)
	var listed struct {
		Data []session.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 3)
	current := 0
	for _, summary := range listed.Data {
		if summary.Current {
			current++
			assert.Equal(t, "laptop", summary.UserAgent)
		}
	}
	assert.Equal(t, 1, current)
	assert.NotContains(t, recorder.Body.String(), second.ID, "ids never leave the server in listings")

	recorder, err = f.call(t, "auth.logout", withSession(post(``), first, nil))
	require.NoError(t, err)
	c := sessionCookie(recorder)
	require.NotNil(t, c)
	assert.Negative(t, c.MaxAge)
	_, err = f.sessions.Verify(ctx, first.ID)
	assert.ErrorIs(t, err, session.ErrAbsent)

	recorder, err = f.call(t, "auth.logout_all", withSession(post(``), second, nil))
	require.NoError(t, err)
	assert.Equal(t, float64(1), decodeData(t, recorder)["revoked"])
	_, err = f.sessions.Verify(ctx, second.ID)
	assert.ErrorIs(t, err, session.ErrAbsent)

	_, err = f.sessions.Verify(ctx, other.ID)
	assert.NoError(t, err, "other device families survive logout-all")
}

func TestSessionEndpointsRequireAuth(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"auth.logout", "auth.logout_all", "auth.session", "auth.sessions"} {
		_, err := f.call(t, name, post(``))
		assert.True(t, apperr.HasCode(err, apperr.CodeUnauthenticated), name)
	}
}

func TestCurrentSession(t *testing.T) {
	f := newFixture(t)
	s, err := f.sessions.Create(context.Background(), session.NewSession{AccountID: "acc-1"})
	require.NoError(t, err)

	recorder, err := f.call(t, "auth.session", withSession(httptest.NewRequest(http.MethodGet, "/", nil), s, &identity.Account{ID: "acc-1", DisplayName: "Lan"}))
	require.NoError(t, err)

	data := decodeData(t, recorder)
	assert.Equal(t, float64(s.ExpiresAt.Unix()), data["expireAt"])
	assert.Equal(t, "Lan", data["account"].(map[string]any)["displayName"])
	assert.Equal(t, true, data["session"].(map[string]any)["current"])
}
