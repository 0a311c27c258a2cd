package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-inventory/internal/directory"
)

// roleClaim is the private claim carrying the employee role.
const roleClaim = "role"

var errUnknownRole = errors.New(`"role" claim names no known role`)

// TokenValidator checks the registered claims of an access token and that its
// role claim is one of Roles. An empty Roles list accepts the three
// employee roles.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
	Roles     []directory.Role
}

func (v TokenValidator) roles() []directory.Role {
	if len(v.Roles) > 0 {
		return v.Roles
	}
	return []directory.Role{directory.RoleAdmin, directory.RoleManager, directory.RoleStaff}
}

// Validate reports the first failed check for tok, signed with algorithm, at now.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	switch {
	case tok == nil:
		return errors.New("auth: nil token")
	case algorithm == "":
		return errors.New("auth: token missing algorithm")
	case v.Algorithm != "" && algorithm != v.Algorithm:
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}

	allowed := v.roles()
	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithAcceptableSkew(v.ClockSkew),
		jwt.WithRequiredClaim(jwt.SubjectKey),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithRequiredClaim(roleClaim),
		jwt.WithValidator(jwt.ValidatorFunc(func(_ context.Context, t jwt.Token) jwt.ValidationError {
			raw, _ := t.Get(roleClaim)
			role, _ := raw.(string)
			if !slices.Contains(allowed, directory.Role(role)) {
				return jwt.NewValidationError(errUnknownRole)
			}
			return nil
		})),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, opts...)
}
