package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/student-portfolio-api/internal/models"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

type teacherLoginRecorder interface {
	AddTeacherLogin(name string) models.TeacherLogin
}

// AuthConfig defines configuration for passphrase logins.
type AuthConfig struct {
	AccessTokenSecret   string
	AccessTokenExpiry   time.Duration
	Issuer              string
	DeveloperPassphrase string
	TeacherPassphrase   string
	HashCost            int
}

// AuthService exchanges portal passphrases for access tokens.
type AuthService struct {
	logs          moderationLogWriter
	teachers      teacherLoginRecorder
	validator     *validator.Validate
	logger        *zap.Logger
	config        AuthConfig
	developerHash []byte
	teacherHash   []byte
	now           func() time.Time
}

// NewAuthService constructs an AuthService instance. Passphrases are hashed
// once here; an empty passphrase disables that login.
func NewAuthService(logs moderationLogWriter, teachers teacherLoginRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.HashCost == 0 {
		config.HashCost = bcrypt.DefaultCost
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 8 * time.Hour
	}

	s := &AuthService{
		logs:      logs,
		teachers:  teachers,
		validator: newValidator(validate),
		logger:    logger,
		config:    config,
		now:       time.Now,
	}

	var err error
	if s.developerHash, err = hashPassphrase(config.DeveloperPassphrase, config.HashCost); err != nil {
		return nil, fmt.Errorf("hash developer passphrase: %w", err)
	}
	if s.teacherHash, err = hashPassphrase(config.TeacherPassphrase, config.HashCost); err != nil {
		return nil, fmt.Errorf("hash teacher passphrase: %w", err)
	}
	return s, nil
}

func hashPassphrase(passphrase string, cost int) ([]byte, error) {
	if passphrase == "" {
		return nil, nil
	}
	return bcrypt.GenerateFromPassword([]byte(passphrase), cost)
}

// DeveloperLogin unlocks the moderation dashboard.
func (s *AuthService) DeveloperLogin(ctx context.Context, req models.DeveloperLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}
	if !matches(s.developerHash, req.Passphrase) {
		s.logger.Warn("developer login rejected", zap.String("ip", req.IP))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid passphrase")
	}

	resp, err := s.issue(models.RoleDeveloper, "")
	if err != nil {
		return nil, err
	}
	details := strings.TrimSpace(strings.Join([]string{req.IP, req.UserAgent}, " "))
	recordModeration(ctx, s.logs, s.logger, models.ModerationActionDeveloperLogin, "", details, string(models.RoleDeveloper))
	s.logger.Info("developer logged in", zap.String("ip", req.IP))
	return resp, nil
}

// TeacherLogin unlocks the teacher portal and records the visit for the
// dashboard.
func (s *AuthService) TeacherLogin(ctx context.Context, req models.TeacherLoginRequest) (*models.LoginResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}
	if !matches(s.teacherHash, req.Passphrase) {
		s.logger.Warn("teacher login rejected", zap.String("name", req.Name))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid passphrase")
	}

	resp, err := s.issue(models.RoleTeacher, req.Name)
	if err != nil {
		return nil, err
	}
	if s.teachers != nil {
		s.teachers.AddTeacherLogin(req.Name)
	}
	s.logger.Info("teacher logged in", zap.String("name", req.Name))
	return resp, nil
}

func matches(hash []byte, passphrase string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(passphrase)) == nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Role != models.RoleDeveloper && claims.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown role")
	}
	return claims, nil
}

func (s *AuthService) issue(role models.Role, name string) (*models.LoginResponse, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		Role: role,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   string(role),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return nil, internalError(err, "failed to create access token")
	}
	return &models.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		Role:        role,
		Name:        name,
		IssuedAt:    issuedAt,
	}, nil
}
