package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-inventory/internal/common"
	"github.com/noah-isme/backend-inventory/internal/directory"
	"github.com/noah-isme/backend-inventory/internal/obs"
)

const defaultAccessTTL = 8 * time.Hour

// Employees is the credential source the service authenticates against.
type Employees interface {
	EmployeeByEmail(ctx context.Context, email string) (directory.Employee, error)
	Employee(ctx context.Context, id string) (directory.Employee, error)
}

// Service authenticates employees and issues signed access tokens.
type Service struct {
	employees Employees
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	issuer    string
	audience  string
	clockSkew time.Duration
}

// Config configures the auth service.
type Config struct {
	Employees      Employees
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// Principal is the identity carried by a valid access token.
type Principal struct {
	UserID string
	Role   string
}

// LoginResult bundles the token returned after a successful login.
type LoginResult struct {
	User         directory.Employee `json:"user"`
	AccessToken  string             `json:"access_token"`
	AccessExpiry time.Time          `json:"access_expires_at"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Employees == nil {
		return nil, errors.New("auth: employees source is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-inventory"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "inventory-console"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	return &Service{
		employees: cfg.Employees,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func invalidCredentials() *common.AppError {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
}

// Login verifies credentials of an active employee and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	res, err := s.login(ctx, email, password)
	switch {
	case err == nil:
		obs.ObserveLogin("success")
	case common.IsAppError(err):
		obs.ObserveLogin("rejected")
	default:
		obs.ObserveLogin("error")
	}
	return res, err
}

func (s *Service) login(ctx context.Context, email, password string) (LoginResult, error) {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" || password == "" {
		return LoginResult{}, invalidCredentials()
	}
	emp, err := s.employees.EmployeeByEmail(ctx, normalized)
	if err != nil || !emp.Active || emp.PasswordHash == "" {
		return LoginResult{}, invalidCredentials()
	}
	ok, err := argon2id.ComparePasswordAndHash(password, emp.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, invalidCredentials()
	}
	token, expiry, err := s.signAccessToken(emp.ID, string(emp.Role))
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{User: emp, AccessToken: token, AccessExpiry: expiry}, nil
}

// Me fetches the current authenticated employee.
func (s *Service) Me(ctx context.Context, userID string) (directory.Employee, error) {
	if strings.TrimSpace(userID) == "" {
		return directory.Employee{}, common.NewAppError(common.CodeUnauthorized, "unauthorized", http.StatusUnauthorized, nil)
	}
	emp, err := s.employees.Employee(ctx, userID)
	if err != nil || !emp.Active {
		return directory.Employee{}, common.NewAppError(common.CodeUnauthorized, "unauthorized", http.StatusUnauthorized, err)
	}
	return emp, nil
}

// Authenticate validates token and reloads its employee. Deactivated or
// deleted employees are rejected, and the returned role is the employee's
// current role rather than the one signed into the token.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	principal, err := s.ParseAccessToken(token)
	if err != nil {
		return Principal{}, err
	}
	emp, err := s.Me(ctx, principal.UserID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: emp.ID, Role: string(emp.Role)}, nil
}

// ParseAccessToken validates an access token and returns its principal.
func (s *Service) ParseAccessToken(token string) (Principal, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Principal{}, common.NewAppError(common.CodeUnauthorized, "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Principal{}, common.NewAppError(common.CodeUnauthorized, "invalid token", http.StatusUnauthorized, err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return Principal{}, common.NewAppError(common.CodeUnauthorized, "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return Principal{}, common.NewAppError(common.CodeUnauthorized, "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return Principal{}, common.NewAppError(common.CodeUnauthorized, "invalid token", http.StatusUnauthorized, err)
	}
	role, _ := parsed.PrivateClaims()[roleClaim].(string)
	return Principal{UserID: parsed.Subject(), Role: role}, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func (s *Service) signAccessToken(userID, role string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		Subject(userID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(roleClaim, role).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}
