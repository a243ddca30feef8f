package services

import (
	"context"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

// AuthSvcFacade covers signup, login and token refresh.
type AuthSvcFacade interface {
	// Signup bootstraps a new company with its first admin user and returns
	// a logged-in token pair.
	Signup(ctx context.Context, req dto.SignupRequest) (*domain.User, *dto.LoginResponse, error)
	// Login authenticates by email and password.
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	// LoginWithGoogle authenticates with a verified Google ID token; the
	// account must already exist for the token's email.
	LoginWithGoogle(ctx context.Context, req dto.GoogleLoginRequest) (*dto.LoginResponse, error)
	// Refresh validates a refresh token and mints a new token pair,
	// rotating the stored refresh token.
	Refresh(ctx context.Context, req dto.RefreshTokenRequest) (*dto.RefreshTokenResponse, error)
}

// TokenSvcFacade mints and validates the tokens used by AuthSvcFacade.
type TokenSvcFacade interface {
	GenerateAccessToken(ctx context.Context, user *domain.User) (string, time.Time, error)
	GenerateRefreshToken(ctx context.Context, user *domain.User) (string, time.Time, error)
	ValidateAndParseRefreshToken(ctx context.Context, userID string, refreshTokenString string) (*domain.User, error)
}

// GoogleOAuthHandlerSvcFacade wraps the Google OAuth flow.
type GoogleOAuthHandlerSvcFacade interface {
	GenerateStateString(ctx context.Context) (string, error)
	GetGoogleLoginURL(ctx context.Context, state string) string
	ExchangeCodeForToken(ctx context.Context, code string) (*oauth2.Token, error)
	GetUserInfo(ctx context.Context, token *oauth2.Token) (*domain.GoogleUserInfo, error)
	ValidateGoogleIDToken(ctx context.Context, idTokenString string) (*idtoken.Payload, error)
}
