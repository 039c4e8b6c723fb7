package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop/internal/config"
	"shop/internal/domain/model"
	"shop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type AuthUserRepoMock struct{ mock.Mock }

func (m *AuthUserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *AuthUserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *AuthUserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *AuthUserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *AuthUserRepoMock) IncrementTokenVersion(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type AuthRTRepoMock struct{ mock.Mock }

func (m *AuthRTRepoMock) Create(ctx context.Context, token *model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *AuthRTRepoMock) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	rt, _ := args.Get(0).(*model.RefreshToken)
	return rt, args.Error(1)
}

func (m *AuthRTRepoMock) MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	args := m.Called(ctx, tokenID, usedAt)
	return args.Error(0)
}

func (m *AuthRTRepoMock) Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error {
	args := m.Called(ctx, tokenID, revokedAt)
	return args.Error(0)
}

func (m *AuthRTRepoMock) DeleteAllByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *AuthRTRepoMock) DeleteByID(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// validatorは素通しのstubで十分
type okValidator struct{}

func (okValidator) ValidateRegister(ctx context.Context, email string, password string) error { return nil }
func (okValidator) ValidateLogin(ctx context.Context, email string, password string) error    { return nil }
func (okValidator) ValidateRefresh(ctx context.Context, refreshToken string, userAgent string) error {
	return nil
}
func (okValidator) ValidateForceLogout(ctx context.Context, targetUserID int64) error { return nil }

type failMailer struct{ called bool }

func (m *failMailer) SendWelcome(toEmail string) error {
	m.called = true
	return errors.New("smtp down")
}

func authCfg() config.Config {
	return config.Config{JWTSecret: "test-secret", Port: "8080"}
}

func newAuthFixture() (*usecase.AuthUsecase, *AuthUserRepoMock, *AuthRTRepoMock, *failMailer) {
	users := new(AuthUserRepoMock)
	rts := new(AuthRTRepoMock)
	mailer := &failMailer{}
	uc := usecase.NewAuthUsecase(authCfg(), users, rts, okValidator{}, mailer)
	return uc, users, rts, mailer
}

// 登録はメール送信が失敗しても成功する
func TestAuthUsecase_Register_WelcomeMailFailureIgnored(t *testing.T) {
	uc, users, _, mailer := newAuthFixture()

	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "a@example.com" && u.Role == model.RoleUser && u.PasswordHash != "secret1234"
	})).Return(nil)

	out, err := uc.Register(context.Background(), usecase.AuthRegisterRequest{
		Email:    "a@example.com",
		Password: "secret1234",
	})
	assert.NoError(t, err)
	assert.Equal(t, "a@example.com", out.User.Email)
	assert.True(t, mailer.called)

	users.AssertExpectations(t)
}

// パスワード不一致ならrefresh tokenは作られない
func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	uc, users, rts, _ := newAuthFixture()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-pass"), bcrypt.DefaultCost)
	users.On("FindByEmail", mock.Anything, "a@example.com").Return(&model.User{
		ID: 1, Email: "a@example.com", PasswordHash: string(hash), IsActive: true,
	}, nil)

	_, err := uc.Login(context.Background(), usecase.AuthLoginRequest{
		Email: "a@example.com", Password: "wrong-pass",
	}, "ua")
	assert.Equal(t, usecase.ErrUnauthorized, err)

	rts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Login_InactiveUser(t *testing.T) {
	uc, users, _, _ := newAuthFixture()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-pass"), bcrypt.DefaultCost)
	users.On("FindByEmail", mock.Anything, "a@example.com").Return(&model.User{
		ID: 1, Email: "a@example.com", PasswordHash: string(hash), IsActive: false,
	}, nil)

	_, err := uc.Login(context.Background(), usecase.AuthLoginRequest{
		Email: "a@example.com", Password: "correct-pass",
	}, "ua")
	assert.Equal(t, usecase.ErrForbidden, err)
}

// used済みrefreshの再利用はreplay扱いで全セッション削除
func TestAuthUsecase_Refresh_ReplayDeletesAll(t *testing.T) {
	uc, _, rts, _ := newAuthFixture()

	used := time.Now().Add(-time.Minute)
	rts.On("FindByTokenHash", mock.Anything, mock.Anything).Return(&model.RefreshToken{
		ID:        "rt-1",
		UserID:    1,
		ExpiresAt: time.Now().Add(time.Hour),
		UsedAt:    &used,
	}, nil)
	rts.On("DeleteAllByUserID", mock.Anything, int64(1)).Return(nil)

	_, err := uc.Refresh(context.Background(), "some-plain-token", "ua")
	assert.Equal(t, usecase.ErrSecurityIncident, err)

	rts.AssertExpectations(t)
}

// 期限切れrefreshは削除して401
func TestAuthUsecase_Refresh_Expired(t *testing.T) {
	uc, _, rts, _ := newAuthFixture()

	rts.On("FindByTokenHash", mock.Anything, mock.Anything).Return(&model.RefreshToken{
		ID:        "rt-1",
		UserID:    1,
		ExpiresAt: time.Now().Add(-time.Hour),
	}, nil)
	rts.On("DeleteByID", mock.Anything, "rt-1").Return(nil)

	_, err := uc.Refresh(context.Background(), "some-plain-token", "ua")
	assert.Equal(t, usecase.ErrUnauthorized, err)

	rts.AssertExpectations(t)
}

// 正常なローテーション：旧used化→新token保存
func TestAuthUsecase_Refresh_RotateSuccess(t *testing.T) {
	uc, users, rts, _ := newAuthFixture()

	rts.On("FindByTokenHash", mock.Anything, mock.Anything).Return(&model.RefreshToken{
		ID:        "rt-1",
		UserID:    1,
		UserAgent: "ua",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)

	users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{
		ID: 1, Email: "a@example.com", Role: model.RoleUser, IsActive: true, TokenVersion: 3,
	}, nil)

	rts.On("MarkUsed", mock.Anything, "rt-1", mock.AnythingOfType("time.Time")).Return(nil)
	rts.On("Create", mock.Anything, mock.MatchedBy(func(rt *model.RefreshToken) bool {
		return rt.UserID == 1 && rt.ID != "rt-1" && rt.TokenHash != ""
	})).Return(nil)

	res, err := uc.Refresh(context.Background(), "some-plain-token", "ua")
	assert.NoError(t, err)
	assert.NotEmpty(t, res.Body.AccessToken)
	assert.Equal(t, 3, res.Body.TokenVersion)
	assert.NotEmpty(t, res.RefreshTokenPlain)

	rts.AssertExpectations(t)
}

// 強制ログアウトでtoken_versionが上がり、全refreshが消える
func TestAuthUsecase_ForceLogout(t *testing.T) {
	uc, users, rts, _ := newAuthFixture()

	users.On("IncrementTokenVersion", mock.Anything, int64(7)).Return(nil)
	rts.On("DeleteAllByUserID", mock.Anything, int64(7)).Return(nil)
	users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, TokenVersion: 4}, nil)

	res, err := uc.ForceLogout(context.Background(), 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), res.UserID)
	assert.Equal(t, 4, res.NewTokenVersion)

	users.AssertExpectations(t)
	rts.AssertExpectations(t)
}
