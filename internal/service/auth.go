package service

import (
	"time"

	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/model"
	jwtpkg "github.com/Babadzakkkich/project-manager/pkg/jwt"
	"github.com/Babadzakkkich/project-manager/pkg/password"
	"github.com/Babadzakkkich/project-manager/pkg/token"
	"gorm.io/gorm"
)

type AuthService struct {
	db                *gorm.DB
	jwtSecret         string
	accessExpireMins  int
	refreshExpireDays int
}

func NewAuthService(db *gorm.DB, jwtSecret string, accessExpireMins, refreshExpireDays int) *AuthService {
	return &AuthService{
		db:                db,
		jwtSecret:         jwtSecret,
		accessExpireMins:  accessExpireMins,
		refreshExpireDays: refreshExpireDays,
	}
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

func (s *AuthService) Register(login, email, name, plainPassword string) (*model.User, error) {
	var count int64
	if err := s.db.Model(&model.User{}).Where("login = ?", login).Count(&count).Error; err != nil {
		return nil, apperr.Wrap(err, "check login")
	}
	if count > 0 {
		return nil, apperr.AlreadyExists("login already taken")
	}
	if err := s.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperr.Wrap(err, "check email")
	}
	if count > 0 {
		return nil, apperr.AlreadyExists("email already registered")
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, apperr.Wrap(err, "hash password")
	}
	user := &model.User{
		Login:        login,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, apperr.Wrap(err, "create user")
	}
	return user, nil
}

func (s *AuthService) Login(login, plainPassword string) (*model.User, *TokenPair, error) {
	var user model.User
	err := s.db.Where("login = ?", login).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, apperr.Unauthorized(apperr.CodeBadCredentials, "invalid login or password")
	}
	if err != nil {
		return nil, nil, apperr.Wrap(err, "load user")
	}
	if !password.Verify(plainPassword, user.PasswordHash) {
		return nil, nil, apperr.Unauthorized(apperr.CodeBadCredentials, "invalid login or password")
	}

	pair, err := s.issueTokens(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Refresh rotates a refresh token: the presented token is verified,
// marked used, and a fresh pair is issued.
func (s *AuthService) Refresh(refreshToken string) (*model.User, *TokenPair, error) {
	hash := token.Hash(refreshToken)

	var user model.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rt model.RefreshToken
		err := tx.Where("token_hash = ? AND used = ? AND expires_at > ?", hash, false, time.Now()).
			First(&rt).Error
		if err == gorm.ErrRecordNotFound {
			return apperr.Unauthorized(apperr.CodeTokenInvalid, "invalid or expired refresh token")
		}
		if err != nil {
			return apperr.Wrap(err, "load refresh token")
		}
		if err := tx.Model(&rt).Update("used", true).Error; err != nil {
			return apperr.Wrap(err, "mark token used")
		}
		if err := tx.First(&user, rt.UserID).Error; err != nil {
			return apperr.Wrap(err, "load token owner")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Logout revokes every refresh token of the user. Best-effort delete:
// succeeds even when no token exists.
func (s *AuthService) Logout(userID uint) error {
	if err := s.db.Where("user_id = ?", userID).Delete(&model.RefreshToken{}).Error; err != nil {
		return apperr.Wrap(err, "revoke tokens")
	}
	return nil
}

// CleanupExpiredTokens drops refresh tokens past their expiry.
func (s *AuthService) CleanupExpiredTokens() error {
	if err := s.db.Where("expires_at < ?", time.Now()).Delete(&model.RefreshToken{}).Error; err != nil {
		return apperr.Wrap(err, "cleanup tokens")
	}
	return nil
}

func (s *AuthService) GetUserByID(id uint) (*model.User, error) {
	var user model.User
	err := s.db.First(&user, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound(apperr.CodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load user")
	}
	return &user, nil
}

func (s *AuthService) issueTokens(user *model.User) (*TokenPair, error) {
	access, expireAt, err := jwtpkg.GenerateToken(s.jwtSecret, user.ID, user.Login, s.accessExpireMins)
	if err != nil {
		return nil, apperr.Wrap(err, "generate access token")
	}

	refresh, err := token.Generate()
	if err != nil {
		return nil, apperr.Wrap(err, "generate refresh token")
	}
	rt := &model.RefreshToken{
		TokenHash: token.Hash(refresh),
		UserID:    user.ID,
		ExpiresAt: time.Now().AddDate(0, 0, s.refreshExpireDays),
	}
	if err := s.db.Create(rt).Error; err != nil {
		return nil, apperr.Wrap(err, "store refresh token")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expireAt,
		TokenType:    "bearer",
	}, nil
}
