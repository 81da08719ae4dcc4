package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/academia/portal/core"
)

var (
	contextTokenKey   = "userToken"
	contextSessionKey = "session"
)

// Claims represents the authorization claims transmitted via a JWT.
// Tokens are issued by the identity service; this API only verifies them.
type Claims struct {
	jwt.StandardClaims
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	OrgID       int    `json:"orgId"`
	WorkspaceID int    `json:"workspaceId,omitempty"`
}

// jwtConfig is the JWT auth middleware config.
func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.Auth.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns the claims of a token for sess, valid for ttl.
func NewClaims(conf *core.Config, sess core.Session, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.Auth.Issuer,
			Subject:   sess.UserID,
			Audience:  conf.Auth.Audience,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username:    sess.Username,
		Email:       sess.Email,
		OrgID:       sess.OrgID,
		WorkspaceID: sess.WorkspaceID,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.Auth.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextToken(ctx echo.Context) (*jwt.Token, Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return token, *claims, nil
		}
	}
	return nil, Claims{}, errUnauthorized
}

func getContextSession(ctx echo.Context) (core.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(core.Session); ok {
		return sess, nil
	}
	return core.Session{}, errUnauthorized
}

// sessionMiddleware turns the verified token into the core.Session of the request.
// The raw token is kept so backend calls are made on behalf of the caller.
func sessionMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, claims, err := getContextToken(ctx)
			if err != nil {
				return err
			}
			if !claims.VerifyIssuer(conf.Auth.Issuer, true) || !claims.VerifyAudience(conf.Auth.Audience, true) {
				return errInvalidToken
			}
			if claims.Subject == "" || claims.OrgID == 0 {
				return errInvalidToken
			}

			sess := core.Session{
				UserID:      claims.Subject,
				Username:    claims.Username,
				Email:       claims.Email,
				OrgID:       claims.OrgID,
				WorkspaceID: claims.WorkspaceID,
				Token:       token.Raw,
			}
			ctx.Set(contextSessionKey, sess)
			req := ctx.Request()
			ctx.SetRequest(req.WithContext(core.WithSession(req.Context(), sess)))
			return next(ctx)
		}
	}
}
