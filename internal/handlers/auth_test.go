package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-server/internal/auth"
	"chat-server/internal/mocks"
	"chat-server/internal/models"
	"chat-server/internal/repositories"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/signup", handler.Signup)
	r.POST("/auth/login", handler.Login)
	return r
}

func TestSignupDuplicateEmail(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	issuer := new(mocks.TokenIssuerMock)
	router := setupAuthRouter(NewAuthHandler(userRepo, issuer))

	userRepo.On("GetByEmail", mock.Anything, "taken@example.com").Return(models.User{ID: 2}, nil).Once()

	body := bytes.NewBufferString(`{"full_name":"Alice","email":"taken@example.com","password":"password123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestLoginSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	issuer := new(mocks.TokenIssuerMock)
	router := setupAuthRouter(NewAuthHandler(userRepo, issuer))

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	userRepo.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(models.User{ID: 1, Email: "alice@example.com", PasswordHash: hash}, nil).Once()
	issuer.On("IssueToken", mock.Anything, auth.Identity{UserID: 1}).Return("tok", nil).Once()

	body := bytes.NewBufferString(`{"email":"alice@example.com","password":"password123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	issuer.AssertExpectations(t)
}

func TestLoginBannedAccountRefused(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(NewAuthHandler(userRepo, new(mocks.TokenIssuerMock)))

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	bannedAt := time.Now().Add(-time.Hour)
	userRepo.On("GetByEmail", mock.Anything, "bob@example.com").Return(models.User{
		ID:           2,
		PasswordHash: hash,
		IsBanned:     true,
		BanReason:    "spam",
		BannedAt:     &bannedAt,
	}, nil).Once()

	body := bytes.NewBufferString(`{"email":"bob@example.com","password":"password123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginExpiredBanAllowed(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	issuer := new(mocks.TokenIssuerMock)
	router := setupAuthRouter(NewAuthHandler(userRepo, issuer))

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	expired := time.Now().Add(-time.Hour)
	userRepo.On("GetByEmail", mock.Anything, "carol@example.com").Return(models.User{
		ID:           3,
		PasswordHash: hash,
		IsBanned:     true,
		BanExpiresAt: &expired,
	}, nil).Once()
	issuer.On("IssueToken", mock.Anything, auth.Identity{UserID: 3}).Return("tok", nil).Once()

	body := bytes.NewBufferString(`{"email":"carol@example.com","password":"password123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(NewAuthHandler(userRepo, new(mocks.TokenIssuerMock)))

	userRepo.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"email":"nobody@example.com","password":"password123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
