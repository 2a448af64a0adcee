package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuskit/college-admin-api/internal/models"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
)

type mockAuthRepo struct {
	byEmail       map[string]*models.User
	byID          map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revokedAll    []string
	revoked       []string
	audits        []*models.AuditLog
	passwords     map[string]string
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.passwords == nil {
		m.passwords = make(map[string]string)
	}
	m.passwords[id] = passwordHash
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo) {
	t.Helper()
	repo := &mockAuthRepo{
		byEmail:       make(map[string]*models.User),
		byID:          make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             "college-admin-api",
	})
	return svc, repo
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u1",
		Email:        "admin@college.edu",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         models.RoleCollegeAdmin,
		Status:       models.UserStatusActive,
		CollegeID:    "c1",
	}
}

func TestAuthLogin(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.byEmail["admin@college.edu"] = activeUser(t, "secret-password")

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "secret-password"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "c1", resp.User.CollegeID)
	assert.Len(t, repo.audits, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleCollegeAdmin, claims.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.byEmail["admin@college.edu"] = activeUser(t, "secret-password")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestAuthLoginPendingAccountRejected(t *testing.T) {
	svc, repo := newAuthFixture(t)
	pending := activeUser(t, "secret-password")
	pending.Status = models.UserStatusPending
	pending.PasswordHash = ""
	repo.byEmail["admin@college.edu"] = pending

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "anything"})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestAuthLoginInactiveAccountRejected(t *testing.T) {
	svc, repo := newAuthFixture(t)
	inactive := activeUser(t, "secret-password")
	inactive.Status = models.UserStatusInactive
	repo.byEmail["admin@college.edu"] = inactive

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@college.edu", Password: "secret-password"})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthFixture(t)
	user := activeUser(t, "secret-password")
	repo.byID["u1"] = user
	repo.refreshTokens["old-token"] = &models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		Token:     "old-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.Contains(t, repo.revoked, "rt1")
}

func TestAuthRefreshRevokedTokenRejected(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.refreshTokens["old-token"] = &models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		Token:     "old-token",
		Revoked:   true,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestAuthChangePasswordRevokesSessions(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.byID["u1"] = activeUser(t, "old-password")

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "old-password",
		NewPassword: "brand-new-password",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedAll, "u1")
	assert.NotEmpty(t, repo.passwords["u1"])
}

func TestAuthValidateTokenBadSignature(t *testing.T) {
	svc, _ := newAuthFixture(t)

	other := NewAuthService(&mockAuthRepo{}, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Hour,
	})
	token, _, err := other.generateAccessToken(&models.User{ID: "u1", Status: models.UserStatusActive})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}
