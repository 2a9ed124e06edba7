package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// setupTestServer builds a Server over in-memory sqlite with uploads going to
// a per-test temp dir. Prometheus wiring is left nil to keep the default
// registry clean across tests.
func setupTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()

	db := setupHandlerTestDB(t)
	cfg := &config.Config{
		Port:      "8080",
		JWTSecret: strings.Repeat("s", 32),
		UploadDir: t.TempDir(),
		Env:       "test",
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	imageRepo := repository.NewImageRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	attachments := service.NewAttachmentService(cfg.UploadDir)

	s := &Server{
		config:         cfg,
		db:             db,
		userRepo:       userRepo,
		postRepo:       postRepo,
		imageRepo:      imageRepo,
		commentRepo:    commentRepo,
		attachments:    attachments,
		postService:    service.NewPostService(postRepo, imageRepo, attachments),
		commentService: service.NewCommentService(commentRepo),
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    60 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupRoutes(app)
	return s, app
}

// createAccount inserts a user directly and returns it with a valid token.
func createAccount(t *testing.T, s *Server, name, email, role string) (*models.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{Name: name, Email: email, Password: string(hash), Role: role}
	require.NoError(t, s.db.Create(user).Error)

	token, err := s.generateToken(user.ID, user.Role)
	require.NoError(t, err)
	return user, token
}

func jsonRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestRegister(t *testing.T) {
	_, app := setupTestServer(t)

	payload := map[string]string{
		"name":     "Writer",
		"email":    "writer@example.com",
		"password": "secret123",
	}

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/auth/register", payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "Writer", body.User.Name)
	assert.Equal(t, models.RoleUser, body.User.Role)

	// Same email again conflicts.
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/auth/register", payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegister_Validation(t *testing.T) {
	_, app := setupTestServer(t)

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{name: "Missing fields", payload: map[string]string{"name": "X"}},
		{name: "Bad email", payload: map[string]string{"name": "X", "email": "not-an-email", "password": "secret123"}},
		{name: "Weak password", payload: map[string]string{"name": "X", "email": "x@example.com", "password": "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/auth/register", tt.payload))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestLogin(t *testing.T) {
	s, app := setupTestServer(t)
	createAccount(t, s, "Writer", "writer@example.com", models.RoleUser)

	t.Run("Success", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/auth/login",
			map[string]string{"email": "writer@example.com", "password": "password123"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Token string      `json:"token"`
			User  models.User `json:"user"`
		}
		decodeBody(t, resp, &body)
		assert.NotEmpty(t, body.Token)
		assert.Equal(t, "writer@example.com", body.User.Email)
	})

	t.Run("Unknown email is 404", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/auth/login",
			map[string]string{"email": "ghost@example.com", "password": "password123"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Wrong password is 401", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/auth/login",
			map[string]string{"email": "writer@example.com", "password": "wrong-password"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestLogout(t *testing.T) {
	s, app := setupTestServer(t)
	_, token := createAccount(t, s, "Writer", "writer@example.com", models.RoleUser)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Without a token the endpoint is unreachable.
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_RevokesToken(t *testing.T) {
	s, app := setupTestServer(t)
	mr := miniredis.RunT(t)
	s.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	_, token := createAccount(t, s, "Writer", "writer@example.com", models.RoleUser)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The same token no longer opens any protected route.
	req = httptest.NewRequest(http.MethodDelete, "/api/post/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body models.ErrorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "Token has been revoked", body.Error)
}

func TestAuthRequired_RejectsBadTokens(t *testing.T) {
	s, app := setupTestServer(t)
	_, token := createAccount(t, s, "Writer", "writer@example.com", models.RoleUser)

	tests := []struct {
		name   string
		header string
	}{
		{name: "Missing header", header: ""},
		{name: "Garbage token", header: "Bearer not.a.jwt"},
		{name: "Wrong scheme", header: "Basic " + token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/post/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAuthRequired_RejectsExpiredToken(t *testing.T) {
	s, app := setupTestServer(t)
	user, _ := createAccount(t, s, "Writer", "writer@example.com", models.RoleUser)

	issued := time.Now().Add(-48 * time.Hour)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": user.Role,
		"iss":  tokenIssuer,
		"aud":  tokenAudience,
		"exp":  issued.Add(time.Hour).Unix(),
		"iat":  issued.Unix(),
		"nbf":  issued.Unix(),
		"jti":  "expired",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.config.JWTSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/post/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired_RejectsDeletedUser(t *testing.T) {
	s, app := setupTestServer(t)
	user, token := createAccount(t, s, "Writer", "writer@example.com", models.RoleUser)

	// The token's signature stays valid after the account is gone.
	require.NoError(t, s.db.Unscoped().Delete(&models.User{}, user.ID).Error)

	req := httptest.NewRequest(http.MethodDelete, "/api/post/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouterErrorCodes(t *testing.T) {
	_, app := setupTestServer(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body models.ErrorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "NOT_FOUND", body.Code)

	resp, err = app.Test(httptest.NewRequest(http.MethodPatch, "/api/post/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	decodeBody(t, resp, &body)
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Code)
}
