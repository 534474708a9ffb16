package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/coursemart-backend/internal/data/repos"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
	"github.com/yungbote/coursemart-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type JWTClaims struct {
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	SecretKey  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type RegisterInput struct {
	Username string
	Name     string
	Email    string
	Password string
	Role     string
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*types.User, error)
	Login(ctx context.Context, identifier, password string) (*types.User, *Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	Logout(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
	cfg      AuthConfig
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, cfg AuthConfig) AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &authService{
		db:       db,
		log:      baseLog.With("service", "AuthService"),
		userRepo: userRepo,
		cfg:      cfg,
	}
}

func (as *authService) GetAccessTTL() time.Duration { return as.cfg.AccessTTL }

func (as *authService) Register(ctx context.Context, in RegisterInput) (*types.User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if username == "" || email == "" || name == "" || in.Password == "" {
		return nil, apierr.Invalid("All fields are required.")
	}
	role := types.RoleStudent
	if in.Role == types.RoleInstructor {
		role = types.RoleInstructor
	}

	usernameTaken, emailTaken, err := as.userRepo.Taken(ctx, nil, username, email, uuid.Nil)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("check identity: %w", err))
	}
	if usernameTaken {
		return nil, apierr.Conflict("Username already exists.")
	}
	if emailTaken {
		return nil, apierr.Conflict("Email already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("hash password: %w", err))
	}
	u := &types.User{
		Username: username,
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     role,
	}
	created, err := as.userRepo.Create(ctx, nil, []*types.User{u})
	if err != nil {
		return nil, writeError(err, "Username or email already exists.")
	}
	as.log.Info("user registered", "user_id", created[0].ID, "role", role)
	return created[0], nil
}

func (as *authService) Login(ctx context.Context, identifier, password string) (*types.User, *Tokens, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return nil, nil, apierr.Invalid("Username or email and password are required.")
	}
	u, err := as.userRepo.GetByIdentifier(ctx, nil, identifier)
	if err != nil {
		return nil, nil, apierr.Internal(fmt.Errorf("load user: %w", err))
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, nil, apierr.Unauthorized("Invalid credentials.")
	}
	tokens, err := as.issue(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	claims, err := as.parse(refreshToken)
	if err != nil || claims.TokenType != tokenTypeRefresh {
		return nil, apierr.Unauthorized("Invalid refresh token.")
	}
	u, err := as.userRepo.GetByRefreshToken(ctx, nil, refreshToken)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load user by refresh token: %w", err))
	}
	if u == nil || u.ID.String() != claims.Subject {
		return nil, apierr.Unauthorized("Refresh token is expired or used.")
	}
	return as.issue(ctx, u)
}

func (as *authService) Logout(ctx context.Context) error {
	id, err := callerID(ctx)
	if err != nil {
		return err
	}
	if err := as.userRepo.SetRefreshToken(ctx, nil, id, ""); err != nil {
		return apierr.Internal(fmt.Errorf("clear refresh token: %w", err))
	}
	return nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims, err := as.parse(tokenString)
	if err != nil {
		return ctx, err
	}
	if claims.TokenType != tokenTypeAccess {
		return ctx, errors.New("not an access token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid subject: %w", err)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        claims.Role,
	}), nil
}

func (as *authService) issue(ctx context.Context, u *types.User) (*Tokens, error) {
	access, err := as.sign(u, tokenTypeAccess, as.cfg.AccessTTL)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("sign access token: %w", err))
	}
	refresh, err := as.sign(u, tokenTypeRefresh, as.cfg.RefreshTTL)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("sign refresh token: %w", err))
	}
	if err := as.userRepo.SetRefreshToken(ctx, nil, u.ID, refresh); err != nil {
		return nil, apierr.Internal(fmt.Errorf("store refresh token: %w", err))
	}
	return &Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(as.cfg.AccessTTL.Seconds()),
	}, nil
}

func (as *authService) sign(u *types.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Role:      u.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.cfg.SecretKey))
}

func (as *authService) parse(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(as.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
