package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-auth/internal/service"
)

func newTestRouter(repo *mockUserRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := newTestTokenService()
	accounts := service.NewAccountService(zap.NewNop(), repo, tokens, nil)
	userH := NewUserHandler(zap.NewNop(), accounts, tokens)
	return NewRouter(zap.NewNop(), userH, tokens, repo)
}

func postJSON(r *gin.Engine, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func sessionCookies(rec *httptest.ResponseRecorder) (access, refresh *http.Cookie) {
	for _, ck := range rec.Result().Cookies() {
		switch ck.Name {
		case accessTokenCookie:
			access = ck
		case refreshTokenCookie:
			refresh = ck
		}
	}
	return access, refresh
}

func registerBody() map[string]string {
	return map[string]string{
		"fullName": "A B",
		"email":    "a@x.com",
		"username": "ab",
		"password": "p1",
		"phone":    "111",
	}
}

func TestRegisterEndpoint_Success(t *testing.T) {
	repo := newMockUserRepo()
	r := newTestRouter(repo)

	rec := postJSON(r, "/api/v1/user/register", registerBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["message"] != "User Created Successfully" {
		t.Fatalf("unexpected message: %v", body["message"])
	}

	access, refresh := sessionCookies(rec)
	if access != nil || refresh != nil {
		t.Fatalf("registration must not set session cookies")
	}

	id := repo.byUsername["ab"]
	stored := repo.usersByID[id]
	if stored.PasswordHash == "" || stored.PasswordHash == "p1" {
		t.Fatalf("stored password must be hashed")
	}
}

func TestRegisterEndpoint_BlankFieldRejected(t *testing.T) {
	repo := newMockUserRepo()
	r := newTestRouter(repo)

	body := registerBody()
	body["phone"] = "   "
	rec := postJSON(r, "/api/v1/user/register", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "All fields are required" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
	if len(repo.usersByID) != 0 {
		t.Fatalf("no record may be created on validation failure")
	}
}

func TestRegisterEndpoint_Conflict(t *testing.T) {
	repo := newMockUserRepo()
	r := newTestRouter(repo)

	if rec := postJSON(r, "/api/v1/user/register", registerBody()); rec.Code != http.StatusOK {
		t.Fatalf("first register: %d", rec.Code)
	}

	dup := registerBody()
	dup["email"] = "other@x.com"
	dup["phone"] = "222"
	rec := postJSON(r, "/api/v1/user/register", dup)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "User already exists" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestLoginEndpoint_SetsSessionCookies(t *testing.T) {
	repo := newMockUserRepo()
	r := newTestRouter(repo)
	postJSON(r, "/api/v1/user/register", registerBody())

	rec := postJSON(r, "/api/v1/user/login", map[string]string{"username": "ab", "password": "p1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["message"] != "User logged in Successfully" {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}

	access, refresh := sessionCookies(rec)
	if access == nil || refresh == nil {
		t.Fatalf("expected accessToken and refreshToken cookies")
	}
	for _, ck := range []*http.Cookie{access, refresh} {
		if !ck.HttpOnly || !ck.Secure {
			t.Fatalf("cookie %s must be Secure and HttpOnly", ck.Name)
		}
	}

	id := repo.byUsername["ab"]
	if repo.usersByID[id].RefreshToken != refresh.Value {
		t.Fatalf("stored refresh token must equal the cookie value")
	}
}

func TestLoginEndpoint_Failures(t *testing.T) {
	repo := newMockUserRepo()
	r := newTestRouter(repo)
	postJSON(r, "/api/v1/user/register", registerBody())

	rec := postJSON(r, "/api/v1/user/login", map[string]string{"password": "p1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without identifiers, got %d", rec.Code)
	}

	rec = postJSON(r, "/api/v1/user/login", map[string]string{"username": "nobody", "password": "p1"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "User not found" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}

	rec = postJSON(r, "/api/v1/user/login", map[string]string{"username": "ab", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Invalid Password" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
	if access, refresh := sessionCookies(rec); access != nil || refresh != nil {
		t.Fatalf("failed login must not set cookies")
	}
}

func TestRefreshEndpoint_RotatesTokens(t *testing.T) {
	repo := newMockUserRepo()
	r := newTestRouter(repo)
	postJSON(r, "/api/v1/user/register", registerBody())
	login := postJSON(r, "/api/v1/user/login", map[string]string{"username": "ab", "password": "p1"})
	_, refresh := sessionCookies(login)
	if refresh == nil {
		t.Fatalf("expected refresh cookie from login")
	}

	rec := postJSON(r, "/api/v1/user/refresh", nil, &http.Cookie{Name: refreshTokenCookie, Value: refresh.Value})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	newAccess, newRefresh := sessionCookies(rec)
	if newAccess == nil || newRefresh == nil {
		t.Fatalf("expected rotated cookies")
	}
	if newRefresh.Value == refresh.Value {
		t.Fatalf("expected a fresh refresh token")
	}

	// El token anterior quedó pisado y ya no rota.
	rec = postJSON(r, "/api/v1/user/refresh", nil, &http.Cookie{Name: refreshTokenCookie, Value: refresh.Value})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for stale refresh token, got %d", rec.Code)
	}
}

func TestRefreshEndpoint_MissingToken(t *testing.T) {
	repo := newMockUserRepo()
	r := newTestRouter(repo)

	rec := postJSON(r, "/api/v1/user/refresh", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without refresh token, got %d", rec.Code)
	}
}

func TestMeEndpoint_ReturnsSanitizedUser(t *testing.T) {
	repo := newMockUserRepo()
	r := newTestRouter(repo)
	postJSON(r, "/api/v1/user/register", registerBody())
	login := postJSON(r, "/api/v1/user/login", map[string]string{"username": "ab", "password": "p1"})
	access, _ := sessionCookies(login)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/me", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: access.Value})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %s", rec.Body.String())
	}
	if user["username"] != "ab" {
		t.Fatalf("unexpected user: %v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash must not be serialized")
	}
}

func TestLogoutEndpoint_ClearsSession(t *testing.T) {
	repo := newMockUserRepo()
	r := newTestRouter(repo)
	postJSON(r, "/api/v1/user/register", registerBody())
	login := postJSON(r, "/api/v1/user/login", map[string]string{"username": "ab", "password": "p1"})
	access, _ := sessionCookies(login)

	rec := postJSON(r, "/api/v1/user/logout", nil, &http.Cookie{Name: accessTokenCookie, Value: access.Value})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	id := repo.byUsername["ab"]
	if repo.usersByID[id].RefreshToken != "" {
		t.Fatalf("logout must clear the stored refresh token")
	}

	clearedAccess, clearedRefresh := sessionCookies(rec)
	if clearedAccess == nil || clearedRefresh == nil {
		t.Fatalf("expected expired cookies on logout")
	}
	if clearedAccess.MaxAge >= 0 || clearedRefresh.MaxAge >= 0 {
		t.Fatalf("logout cookies must be expired, got %d/%d", clearedAccess.MaxAge, clearedRefresh.MaxAge)
	}
}

// Escenario completo: registro, registro duplicado, login y password incorrecto.
func TestAccountLifecycleScenario(t *testing.T) {
	repo := newMockUserRepo()
	r := newTestRouter(repo)

	rec := postJSON(r, "/api/v1/user/register", registerBody())
	if rec.Code != http.StatusOK || decodeBody(t, rec)["message"] != "User Created Successfully" {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(r, "/api/v1/user/register", registerBody())
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}

	rec = postJSON(r, "/api/v1/user/login", map[string]string{"username": "ab", "password": "p1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	if access, refresh := sessionCookies(rec); access == nil || refresh == nil {
		t.Fatalf("login must set both cookies")
	}

	rec = postJSON(r, "/api/v1/user/login", map[string]string{"username": "ab", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", rec.Code)
	}
}
