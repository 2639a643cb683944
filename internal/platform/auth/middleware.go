package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

const (
	RolePatient      = "patient"
	RolePractitioner = "practitioner"
	RoleAdmin        = "admin"
)

// Claims are the token claims this service understands. The subject is the
// caller's numeric user id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
	// Skipper bypasses authentication for public infrastructure paths.
	Skipper func(c echo.Context) bool
}

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Role   string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func validRole(role string) bool {
	switch role {
	case RolePatient, RolePractitioner, RoleAdmin:
		return true
	}
	return false
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil || userID <= 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "token subject must be a numeric user id")
			}
			if !validRole(claims.Role) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token role is not recognized")
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), Principal{UserID: userID, Role: claims.Role})))
			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development. Requests
// without a token act as the user named by the X-User-ID and X-User-Role
// headers, defaulting to admin user 1.
func DevAuthMiddleware(skipper func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			p := Principal{UserID: 1, Role: RoleAdmin}
			if raw := c.Request().Header.Get("X-User-ID"); raw != "" {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id <= 0 {
					return echo.NewHTTPError(http.StatusBadRequest, "X-User-ID must be a positive integer")
				}
				p.UserID = id
			}
			if role := c.Request().Header.Get("X-User-Role"); role != "" {
				if !validRole(role) {
					return echo.NewHTTPError(http.StatusBadRequest, "X-User-Role is not recognized")
				}
				p.Role = role
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

// WithPrincipal stores the caller identity on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, p.UserID)
	return context.WithValue(ctx, UserRoleKey, p.Role)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	uid, ok := ctx.Value(UserIDKey).(int64)
	if !ok {
		return Principal{}, false
	}
	role, _ := ctx.Value(UserRoleKey).(string)
	return Principal{UserID: uid, Role: role}, true
}

func UserIDFromContext(ctx context.Context) int64 {
	uid, _ := ctx.Value(UserIDKey).(int64)
	return uid
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}
