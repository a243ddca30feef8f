package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/apperrors"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	portsrepo "github.com/expenseasy/expenseasy_backend/internal/core/ports/repositories"
	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
	"github.com/expenseasy/expenseasy_backend/internal/platform/config"
	"github.com/expenseasy/expenseasy_backend/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// tokenService implements the TokenSvcFacade for handling JWT and refresh tokens.
type tokenService struct {
	cfg         *config.Config
	userService portssvc.UserSvcFacade
}

// NewTokenService creates a new instance of tokenService.
func NewTokenService(cfg *config.Config, userService portssvc.UserSvcFacade) portssvc.TokenSvcFacade {
	return &tokenService{
		cfg:         cfg,
		userService: userService,
	}
}

// GenerateAccessToken creates a new JWT access token for the given user.
func (s *tokenService) GenerateAccessToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	expiryTime := time.Now().Add(s.cfg.JWTExpiryDuration)

	accessToken, err := utils.GenerateJWT(user.UserID, s.cfg.JWTSecret, s.cfg.JWTExpiryDuration, s.cfg.JWTIssuer)
	if err != nil {
		return "", time.Time{}, err
	}
	return accessToken, expiryTime, nil
}

// GenerateRefreshToken creates a new refresh token for the given user.
func (s *tokenService) GenerateRefreshToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	// 32 bytes yields a 64-character hex string.
	rawRefreshToken, err := utils.GenerateSecureRandomString(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate secure random string for refresh token: %w", err)
	}

	expiryTime := time.Now().Add(s.cfg.RefreshTokenExpiryDuration)

	return rawRefreshToken, expiryTime, nil
}

// ValidateAndParseRefreshToken validates a refresh token string against the
// stored hash and returns the associated user.
func (s *tokenService) ValidateAndParseRefreshToken(ctx context.Context, userID string, refreshTokenString string) (*domain.User, error) {
	user, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to retrieve user for refresh token validation: %w", err)
	}

	if user.RefreshTokenHash == "" || user.RefreshTokenExpiryTime == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if time.Now().After(*user.RefreshTokenExpiryTime) {
		return nil, apperrors.ErrRefreshTokenExpired
	}

	if !utils.CompareRefreshTokenHash(refreshTokenString, user.RefreshTokenHash) {
		return nil, apperrors.ErrUnauthorized
	}

	return user, nil
}

// --- GoogleOAuthHandlerSvcFacade Implementation ---

// googleOAuthHandlerService implements the GoogleOAuthHandlerSvcFacade.
type googleOAuthHandlerService struct {
	cfg          *config.Config
	oauth2Config *oauth2.Config
}

// NewGoogleOAuthHandlerService creates a new instance of googleOAuthHandlerService.
func NewGoogleOAuthHandlerService(cfg *config.Config) portssvc.GoogleOAuthHandlerSvcFacade {
	return &googleOAuthHandlerService{
		cfg: cfg,
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// GenerateStateString creates a secure random string used as a CSRF token for
// the OAuth flow.
func (s *googleOAuthHandlerService) GenerateStateString(ctx context.Context) (string, error) {
	// 16 bytes -> 32 char hex string
	state, err := utils.GenerateSecureRandomString(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate state string for OAuth: %w", err)
	}
	return state, nil
}

// GetGoogleLoginURL returns the URL to redirect the user to for Google login.
func (s *googleOAuthHandlerService) GetGoogleLoginURL(ctx context.Context, state string) string {
	return s.oauth2Config.AuthCodeURL(state)
}

// ExchangeCodeForToken exchanges an OAuth authorization code for a token.
func (s *googleOAuthHandlerService) ExchangeCodeForToken(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code for token: %w", err)
	}
	return token, nil
}

// GetUserInfo uses the access token to get user information from Google.
func (s *googleOAuthHandlerService) GetUserInfo(ctx context.Context, token *oauth2.Token) (*domain.GoogleUserInfo, error) {
	client := s.oauth2Config.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info from google: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google api returned non-200 status for userinfo: %s", resp.Status)
	}

	var userInfo domain.GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info from google: %w", err)
	}

	return &userInfo, nil
}

// ValidateGoogleIDToken validates an ID token received from Google and returns
// the payload if valid.
func (s *googleOAuthHandlerService) ValidateGoogleIDToken(ctx context.Context, idTokenString string) (*idtoken.Payload, error) {
	if s.cfg.GoogleClientID == "" {
		return nil, errors.New("google client ID is not configured in the application")
	}

	payload, err := idtoken.Validate(ctx, idTokenString, s.cfg.GoogleClientID)
	if err != nil {
		return nil, fmt.Errorf("google ID token validation failed: %w", err)
	}

	return payload, nil
}

// --- AuthSvcFacade Implementation ---

// authService orchestrates signup, login and token refresh on top of the
// user, company and token services.
type authService struct {
	BaseService
	userRepo    portsrepo.UserRepositoryFacade
	userSvc     portssvc.UserSvcFacade
	companySvc  portssvc.CompanySvcFacade
	tokenSvc    portssvc.TokenSvcFacade
	googleOAuth portssvc.GoogleOAuthHandlerSvcFacade
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo portsrepo.UserRepositoryFacade,
	userSvc portssvc.UserSvcFacade,
	companySvc portssvc.CompanySvcFacade,
	tokenSvc portssvc.TokenSvcFacade,
	googleOAuth portssvc.GoogleOAuthHandlerSvcFacade,
) portssvc.AuthSvcFacade {
	return &authService{
		userRepo:    userRepo,
		userSvc:     userSvc,
		companySvc:  companySvc,
		tokenSvc:    tokenSvc,
		googleOAuth: googleOAuth,
	}
}

var _ portssvc.AuthSvcFacade = (*authService)(nil)

// Signup bootstraps a new company with its first admin user. The admin is
// created directly against the repository: the user service's create path
// requires an existing admin, which does not exist yet at this point.
func (s *authService) Signup(ctx context.Context, req dto.SignupRequest) (*domain.User, *dto.LoginResponse, error) {
	if _, err := s.userSvc.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, nil, apperrors.NewConflictError("a user with this email already exists")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, err
	}

	userID := uuid.NewString()

	company, err := s.companySvc.CreateCompany(ctx, dto.CreateCompanyRequest{
		Name:           req.CompanyName,
		CurrencyCode:   req.CurrencyCode,
		CurrencyName:   req.CurrencyName,
		CurrencySymbol: req.CurrencySymbol,
	}, userID)
	if err != nil {
		return nil, nil, err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	admin := domain.User{
		UserID:       userID,
		Name:         req.Name,
		Email:        req.Email,
		Role:         domain.RoleAdmin,
		CompanyID:    company.CompanyID,
		PasswordHash: passwordHash,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}
	if err := s.userRepo.SaveUser(ctx, admin); err != nil {
		return nil, nil, err
	}

	s.LogInfo(ctx, "Company bootstrapped via signup",
		"company_id", company.CompanyID,
		"admin_user_id", admin.UserID,
	)

	loginResp, err := s.issueTokenPair(ctx, &admin)
	if err != nil {
		return nil, nil, err
	}
	return &admin, loginResp, nil
}

// Login authenticates by email and password.
func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userSvc.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrUnauthorized
	}

	return s.issueTokenPair(ctx, user)
}

// LoginWithGoogle authenticates with a verified Google ID token. The account
// must already exist for the token's email; there is no implicit signup.
func (s *authService) LoginWithGoogle(ctx context.Context, req dto.GoogleLoginRequest) (*dto.LoginResponse, error) {
	payload, err := s.googleOAuth.ValidateGoogleIDToken(ctx, req.IDToken)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.userSvc.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}

	return s.issueTokenPair(ctx, user)
}

// Refresh validates a refresh token and mints a new token pair, rotating the
// stored refresh token.
func (s *authService) Refresh(ctx context.Context, req dto.RefreshTokenRequest) (*dto.RefreshTokenResponse, error) {
	user, err := s.tokenSvc.ValidateAndParseRefreshToken(ctx, req.UserID, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	loginResp, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	return &dto.RefreshTokenResponse{
		Token:        loginResp.Token,
		RefreshToken: loginResp.RefreshToken,
	}, nil
}

// issueTokenPair mints an access and refresh token for the user and persists
// the hash of the refresh token, invalidating any previous one.
func (s *authService) issueTokenPair(ctx context.Context, user *domain.User) (*dto.LoginResponse, error) {
	accessToken, _, err := s.tokenSvc.GenerateAccessToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshExpiry, err := s.tokenSvc.GenerateRefreshToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	refreshHash := utils.HashRefreshToken(refreshToken)
	if err := s.userSvc.SetRefreshToken(ctx, user.UserID, &refreshHash, &refreshExpiry); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.LoginResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		User:         dto.ToUserResponse(user),
	}, nil
}
