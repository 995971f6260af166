package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/dmitrijs2005/tzikbal/internal/logging"
	"github.com/dmitrijs2005/tzikbal/internal/server/auth"
	"github.com/dmitrijs2005/tzikbal/internal/server/config"
	"github.com/dmitrijs2005/tzikbal/internal/server/models"
	"github.com/dmitrijs2005/tzikbal/internal/server/oauth"
	"github.com/dmitrijs2005/tzikbal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tzikbal/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- fakes ---

type fakeMedia struct {
	got  models.UploadedFile
	body []byte
	err  error
}

func (m *fakeMedia) Upload(ctx context.Context, f models.UploadedFile) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.got = f
	m.body, _ = io.ReadAll(f.Body)
	return "https://tzikbal.s3.us-east-1.amazonaws.com/id-" + f.OriginalName, nil
}

type fakeGoogle struct {
	assertion models.Assertion
	err       error
}

func (g *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (g *fakeGoogle) Exchange(ctx context.Context, code string) (models.Assertion, error) {
	if g.err != nil {
		return models.Assertion{}, g.err
	}
	if code != "good-code" {
		return models.Assertion{}, common.ErrMissingAssertion
	}
	return g.assertion, nil
}

// --- helpers ---

type testEnv struct {
	srv    *Server
	media  *fakeMedia
	states *oauth.MemoryStateStore
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = ""
	cfg.Version = "1.2.3"
	return cfg
}

func newTestEnv(t *testing.T, google IdentityProvider) *testEnv {
	t.Helper()

	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	orig := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = orig })

	users := services.NewUserService(nil, repomanager.NewInMemoryRepositoryManager(),
		auth.NewBcryptHasher(bcrypt.MinCost),
		auth.NewTokenIssuer([]byte("test-secret"), time.Hour),
		logging.Discard(),
	)
	env := &testEnv{
		media:  &fakeMedia{},
		states: oauth.NewMemoryStateStore(oauth.StateTTL),
	}
	env.srv = NewServer(Params{
		Config: testConfig(),
		Logger: logging.Discard(),
		Users:  users,
		Media:  env.media,
		Google: google,
		States: env.states,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, path, "", strings.NewReader(body), "application/json")
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) Envelope {
	t.Helper()
	var raw struct {
		Envelope
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Envelope
}

const annJSON = `{"name":"Ann","email":"a@x.io","password":"secret1"}`

// --- tests ---

func TestWorkedExample(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.postJSON(t, "/auth/register", annJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered models.SafeUser
	envl := decodeEnvelope(t, rec, &registered)
	assert.False(t, envl.Error)
	assert.Equal(t, http.StatusCreated, envl.StatusCode)
	assert.Equal(t, "a@x.io", registered.Email)
	assert.Equal(t, models.ProviderLocal, registered.Provider)

	rec = env.postJSON(t, "/auth/login", `{"email":"a@x.io","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.postJSON(t, "/auth/login", `{"email":"a@x.io","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login LoginResponse
	decodeEnvelope(t, rec, &login)
	require.NotEmpty(t, login.AccessToken)
	assert.Equal(t, registered.ID, login.User.ID)

	rec = env.do(t, http.MethodGet, "/auth/profile", login.AccessToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profile models.SafeUser
	decodeEnvelope(t, rec, &profile)
	assert.Equal(t, registered.ID, profile.ID)
}

func TestRegister_Duplicate(t *testing.T) {
	env := newTestEnv(t, nil)

	require.Equal(t, http.StatusCreated, env.postJSON(t, "/auth/register", annJSON).Code)

	rec := env.postJSON(t, "/auth/register", annJSON)
	assert.Equal(t, http.StatusConflict, rec.Code)
	envl := decodeEnvelope(t, rec, nil)
	assert.True(t, envl.Error)
	assert.Equal(t, "user already exists", envl.Message)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := map[string]string{
		"missing name":  `{"email":"a@x.io","password":"secret1"}`,
		"bad email":     `{"name":"A","email":"nope","password":"secret1"}`,
		"short pass":    `{"name":"A","email":"a@x.io","password":"123"}`,
		"bad phone":     `{"name":"A","email":"a@x.io","password":"secret1","phone":"12-34"}`,
		"bad theme":     `{"name":"A","email":"a@x.io","password":"secret1","preferences":{"theme":"neon"}}`,
		"unknown field": `{"name":"A","email":"a@x.io","password":"secret1","role":"admin"}`,
		"malformed":     `{"name":`,
		"empty":         ``,
		"two objects":   annJSON + annJSON,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := env.postJSON(t, "/auth/register", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			envl := decodeEnvelope(t, rec, nil)
			assert.True(t, envl.Error)
			assert.Contains(t, envl.Message, common.ErrorValidation.Error())
		})
	}
}

func TestRegister_PasswordByteLimit(t *testing.T) {
	env := newTestEnv(t, nil)

	register := func(email, password string) *httptest.ResponseRecorder {
		body, err := json.Marshal(map[string]string{"name": "A", "email": email, "password": password})
		require.NoError(t, err)
		return env.postJSON(t, "/auth/register", string(body))
	}

	tests := []struct {
		name     string
		email    string
		password string
		status   int
	}{
		{name: "ascii over limit", email: "a@x.com", password: strings.Repeat("a", 80), status: http.StatusBadRequest},
		// 30 runes, 75 bytes
		{name: "multibyte over limit", email: "b@x.com", password: strings.Repeat("ж€", 15), status: http.StatusBadRequest},
		{name: "exactly at limit", email: "c@x.com", password: strings.Repeat("a", common.MaxPasswordBytes), status: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := register(tt.email, tt.password)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusBadRequest {
				envl := decodeEnvelope(t, rec, nil)
				assert.Contains(t, envl.Message, common.ErrorValidation.Error())
			}
		})
	}

	rec := env.postJSON(t, "/auth/login", `{"email":"c@x.com","password":"`+strings.Repeat("a", common.MaxPasswordBytes)+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRegister_AcceptsOptionalFields(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.postJSON(t, "/auth/register",
		`{"name":"A","email":"a@x.io","password":"secret1","phone":"+15551234567","preferences":{"lang":"es","theme":"dark"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var u models.SafeUser
	decodeEnvelope(t, rec, &u)
	assert.Equal(t, "+15551234567", u.Phone)
	assert.Equal(t, models.Preferences{Lang: "es", Theme: models.ThemeDark}, u.Preferences)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusCreated, env.postJSON(t, "/auth/register", annJSON).Code)

	wrongPw := env.postJSON(t, "/auth/login", `{"email":"a@x.io","password":"nope"}`)
	unknown := env.postJSON(t, "/auth/login", `{"email":"b@x.io","password":"secret1"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPw.Body.Bytes(), unknown.Body.Bytes())
}

func TestResponses_NeverContainPassword(t *testing.T) {
	env := newTestEnv(t, nil)

	reg := env.postJSON(t, "/auth/register", annJSON)
	login := env.postJSON(t, "/auth/login", `{"email":"a@x.io","password":"secret1"}`)
	var lr LoginResponse
	decodeEnvelope(t, login, &lr)
	profile := env.do(t, http.MethodGet, "/auth/profile", lr.AccessToken, nil, "")

	for _, rec := range []*httptest.ResponseRecorder{reg, login, profile} {
		body := rec.Body.String()
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "secret1")
		assert.NotContains(t, body, "$2a$")
	}
}

func TestProfile_Unauthorized(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := map[string]string{
		"no header":   "",
		"garbage":     "garbage",
		"wrong token": "eyJhbGciOiJIUzI1NiJ9.e30.sig",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/auth/profile", token, nil, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile_TokenForDeletedAccount(t *testing.T) {
	env := newTestEnv(t, nil)

	token, err := auth.NewTokenIssuer([]byte("test-secret"), time.Hour).Issue("ghost", "ghost@x.io")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/auth/profile", token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogle_NotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/auth/google", "", nil, "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/auth/google/redirect?code=x", "", nil, "").Code)
}

func TestGoogle_FullFlow(t *testing.T) {
	google := &fakeGoogle{assertion: models.Assertion{Email: "g@x.io", Name: "G", Picture: "https://p"}}
	env := newTestEnv(t, google)

	rec := env.do(t, http.MethodGet, "/auth/google", "", nil, "")
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	rec = env.do(t, http.MethodGet, "/auth/google/redirect?code=good-code&state="+state, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res LoginResponse
	decodeEnvelope(t, rec, &res)
	assert.Equal(t, "g@x.io", res.User.Email)
	assert.Equal(t, models.ProviderGoogle, res.User.Provider)
	require.NotEmpty(t, res.AccessToken)
	assert.NotContains(t, rec.Body.String(), "password")

	// state is single use
	rec = env.do(t, http.MethodGet, "/auth/google/redirect?code=good-code&state="+state, "", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the issued token works against the profile endpoint
	rec = env.do(t, http.MethodGet, "/auth/profile", res.AccessToken, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGoogle_RedirectFailures(t *testing.T) {
	google := &fakeGoogle{assertion: models.Assertion{Email: "g@x.io"}}
	env := newTestEnv(t, google)
	ctx := context.Background()

	rec := env.do(t, http.MethodGet, "/auth/google/redirect?code=good-code&state=unknown", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, env.states.Save(ctx, "s1"))
	rec = env.do(t, http.MethodGet, "/auth/google/redirect?code=bad-code&state=s1", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envl := decodeEnvelope(t, rec, nil)
	assert.Equal(t, "no user information found", envl.Message)

	require.NoError(t, env.states.Save(ctx, "s2"))
	rec = env.do(t, http.MethodGet, "/auth/google/redirect?error=access_denied&state=s2", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartBody(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func loginToken(t *testing.T, env *testEnv) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, env.postJSON(t, "/auth/register", annJSON).Code)
	rec := env.postJSON(t, "/auth/login", `{"email":"a@x.io","password":"secret1"}`)
	var lr LoginResponse
	decodeEnvelope(t, rec, &lr)
	return lr.AccessToken
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	token := loginToken(t, env)

	body, ct := multipartBody(t, "file", "cat.png", "meow")
	rec := env.do(t, http.MethodPost, "/media/upload", token, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res UploadResponse
	decodeEnvelope(t, rec, &res)
	assert.Equal(t, "https://tzikbal.s3.us-east-1.amazonaws.com/id-cat.png", res.URL)
	assert.Equal(t, "cat.png", env.media.got.OriginalName)
	assert.Equal(t, int64(4), env.media.got.Size)
	assert.Equal(t, "meow", string(env.media.body))
}

func TestUpload_Failures(t *testing.T) {
	env := newTestEnv(t, nil)
	token := loginToken(t, env)

	body, ct := multipartBody(t, "file", "cat.png", "meow")
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/media/upload", "", body, ct).Code)

	body, ct = multipartBody(t, "other", "cat.png", "meow")
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/media/upload", token, body, ct).Code)

	env.media.err = common.ErrInvalidFile
	body, ct = multipartBody(t, "file", "cat.png", "meow")
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/media/upload", token, body, ct).Code)

	env.media.err = io.ErrUnexpectedEOF
	body, ct = multipartBody(t, "file", "cat.png", "meow")
	rec := env.do(t, http.MethodPost, "/media/upload", token, body, ct)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "unexpected EOF")
}

func TestRootVersionAndNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var root map[string]string
	envl := decodeEnvelope(t, rec, &root)
	assert.Equal(t, "API Running!", root["message"])
	assert.Equal(t, "2024-05-06T07:08:09.000Z", envl.Timestamp)

	rec = env.do(t, http.MethodGet, "/version", "", nil, "")
	var v map[string]string
	decodeEnvelope(t, rec, &v)
	assert.Equal(t, "1.2.3", v["version"])

	rec = env.do(t, http.MethodGet, "/nope", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, decodeEnvelope(t, rec, nil).Error)
}

func TestMiddleware_CORSAndSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:8100")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:8100", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, nil)

	var last *httptest.ResponseRecorder
	for i := 0; i <= authRateRequests; i++ {
		last = env.postJSON(t, "/auth/login", `{"email":"a@x.io","password":"x"}`)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)

	// other routes are not throttled
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/", "", nil, "").Code)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"valid":        {"Bearer abc", "abc", true},
		"lowercase":    {"bearer abc", "abc", true},
		"missing":      {"", "", false},
		"no token":     {"Bearer ", "", false},
		"other scheme": {"Token abc", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			token, err := bearerToken(req)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.token, token)
			} else {
				assert.ErrorIs(t, err, common.ErrMissingCredentials)
			}
		})
	}
}
