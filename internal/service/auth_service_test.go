package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edulink/tutor-market-api/internal/models"
	"github.com/edulink/tutor-market-api/pkg/config"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

type mockAuthRepo struct {
	users    map[int64]*models.User
	sessions map[string]*models.RefreshToken
	nextID   int64
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:    map[int64]*models.User{},
		sessions: map[string]*models.RefreshToken{},
	}
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.nextID++
	user.ID = m.nextID
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	if user, ok := m.users[id]; ok {
		user.LastLogin = &ts
	}
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	copied := *token
	m.sessions[token.Token] = &copied
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if session, ok := m.sessions[token]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, session := range m.sessions {
		if session.ID == id {
			session.Revoked = true
			session.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	now := time.Now().UTC()
	for _, session := range m.sessions {
		if session.UserID == userID && !session.Revoked {
			session.Revoked = true
			session.RevokedAt = &now
		}
	}
	return nil
}

func newAuthFixture() (*AuthService, *mockAuthRepo) {
	repo := newMockAuthRepo()
	cfg := config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        15 * time.Minute,
		RefreshExpiration: 24 * time.Hour,
		Issuer:            "tutor-market-api",
	}
	return NewAuthService(repo, cfg, nil, nil), repo
}

func register(t *testing.T, svc *AuthService, email, password string) *models.UserInfo {
	t.Helper()
	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: email, Password: password, FullName: "Sam Lee", Role: models.RoleStudent,
	})
	require.NoError(t, err)
	return info
}

func TestAuthServiceRegisterHashesPassword(t *testing.T) {
	svc, repo := newAuthFixture()

	info := register(t, svc, "sam@example.com", "hunter22")
	stored := repo.users[info.ID]
	assert.NotEqual(t, "hunter22", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22")))
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()
	register(t, svc, "sam@example.com", "hunter22")

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "sam@example.com", Password: "other123", FullName: "Other", Role: models.RoleStudent,
	})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestAuthServiceLoginIssuesTokenPair(t *testing.T) {
	svc, repo := newAuthFixture()
	info := register(t, svc, "sam@example.com", "hunter22")

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "sam@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, info.ID, resp.User.ID)

	session := repo.sessions[resp.RefreshToken]
	require.NotNil(t, session)
	assert.Equal(t, info.ID, session.UserID)
	assert.NotNil(t, repo.users[info.ID].LastLogin)
}

func TestAuthServiceLoginBadPassword(t *testing.T) {
	svc, _ := newAuthFixture()
	register(t, svc, "sam@example.com", "hunter22")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "sam@example.com", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, err))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, err))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture()
	info := register(t, svc, "sam@example.com", "hunter22")
	repo.users[info.ID].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "sam@example.com", Password: "hunter22"})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, errorCode(t, err))
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthFixture()
	register(t, svc, "sam@example.com", "hunter22")
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "sam@example.com", Password: "hunter22"})
	require.NoError(t, err)

	resp, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)
	assert.True(t, repo.sessions[login.RefreshToken].Revoked)

	// The rotated-out token cannot be replayed.
	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestAuthServiceRefreshExpiredSession(t *testing.T) {
	svc, repo := newAuthFixture()
	register(t, svc, "sam@example.com", "hunter22")
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "sam@example.com", Password: "hunter22"})
	require.NoError(t, err)
	repo.sessions[login.RefreshToken].ExpiresAt = time.Now().UTC().Add(-time.Minute)

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestAuthServiceRefreshUnknownToken(t *testing.T) {
	svc, _ := newAuthFixture()
	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "deadbeef"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestAuthServiceLogoutRevokesSessions(t *testing.T) {
	svc, repo := newAuthFixture()
	info := register(t, svc, "sam@example.com", "hunter22")
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "sam@example.com", Password: "hunter22"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), info.ID))
	assert.True(t, repo.sessions[login.RefreshToken].Revoked)

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestAuthServiceValidateTokenRoundTrip(t *testing.T) {
	svc, _ := newAuthFixture()
	info := register(t, svc, "sam@example.com", "hunter22")
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "sam@example.com", Password: "hunter22"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, info.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	_, err = svc.ValidateToken("not-a-token")
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}
