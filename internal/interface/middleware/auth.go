package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
	"github.com/oksasatya/go-ddd-identity/pkg/metrics"
	"github.com/oksasatya/go-ddd-identity/pkg/response"
)

// Rejection reasons reported to clients.
const (
	ReasonMissingHeader = "missing authorization header"
	ReasonBadFormat     = "invalid token format"
	ReasonInvalidToken  = "invalid token"
	ReasonExpired       = "token expired"
)

// healthMarker marks liveness paths that skip verification.
const healthMarker = "/health"

// AuthResult is the gate's decision for one request: admitted with an
// identity, admitted without one (health paths), or rejected with a reason
// and the 401 envelope to send.
type AuthResult struct {
	identity helpers.Identity
	reason   string
	rejected bool
	resp     response.APIResponse[any]
}

// Admitted builds an admitting result. An empty identity means the path was
// exempt from verification.
func Admitted(id helpers.Identity) AuthResult { return AuthResult{identity: id} }

// Rejected builds a rejecting result without a request-bound envelope.
func Rejected(reason string) AuthResult {
	return AuthResult{
		reason:   reason,
		rejected: true,
		resp: response.APIResponse[any]{
			Status:  http.StatusUnauthorized,
			Message: reason,
		},
	}
}

func (r AuthResult) Rejected() bool { return r.rejected }
func (r AuthResult) Reason() string { return r.reason }
func (r AuthResult) UserID() string { return r.identity.UserID }

// Identity returns the verified claims. It is zero unless admitted with a token.
func (r AuthResult) Identity() helpers.Identity { return r.identity }

// Response is the pre-built 401 envelope of a rejected result.
func (r AuthResult) Response() response.APIResponse[any] { return r.resp }

// Reject writes the pre-built envelope and stops the chain.
func (r AuthResult) Reject(c *gin.Context) {
	response.Abort(c, r.resp)
}

// ProtectedHandler receives the gate's decision by value. It must check
// auth.Rejected() before doing any protected work.
type ProtectedHandler func(c *gin.Context, auth AuthResult)

// TokenVerifier is satisfied by *helpers.JWTManager.
type TokenVerifier interface {
	Verify(token string) (*helpers.Claims, error)
}

// Gate authenticates bearer tokens for protected handlers.
type Gate struct {
	Verifier TokenVerifier
	Logger   *logrus.Logger
	Metrics  *metrics.AuthMetrics
}

func NewGate(v TokenVerifier, logger *logrus.Logger, m *metrics.AuthMetrics) *Gate {
	return &Gate{Verifier: v, Logger: logger, Metrics: m}
}

// Decide runs the verification state machine for a path and Authorization header.
func (g *Gate) Decide(path, authorization string) AuthResult {
	if strings.Contains(path, healthMarker) {
		return Admitted(helpers.Identity{})
	}
	if strings.TrimSpace(authorization) == "" {
		return Rejected(ReasonMissingHeader)
	}
	token, ok := bearerToken(authorization)
	if !ok {
		return Rejected(ReasonBadFormat)
	}
	claims, err := g.Verifier.Verify(token)
	switch {
	case err == nil:
		return Admitted(helpers.Identity{UserID: claims.Subject, Email: claims.Email, UserName: claims.UserName})
	case errors.Is(err, helpers.ErrTokenExpired):
		return Rejected(ReasonExpired)
	default:
		return Rejected(ReasonInvalidToken)
	}
}

// Evaluate decides for the current request and binds the 401 envelope to it.
func (g *Gate) Evaluate(c *gin.Context) AuthResult {
	res := g.Decide(c.Request.URL.Path, c.GetHeader("Authorization"))
	if res.rejected {
		res.resp = response.Error[any](c, http.StatusUnauthorized, res.reason, nil)
		g.Metrics.RecordGate(metrics.OutcomeRejected, res.reason)
		if g.Logger != nil {
			g.Logger.WithFields(logrus.Fields{
				"path":       c.Request.URL.Path,
				"reason":     res.reason,
				"request_id": c.GetString(response.RequestIDKey),
			}).Debug("request rejected by auth gate")
		}
		return res
	}
	g.Metrics.RecordGate(metrics.OutcomeSuccess, "")
	return res
}

// Protect adapts h to gin. The gate never aborts: h always runs with the result.
func (g *Gate) Protect(h ProtectedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		h(c, g.Evaluate(c))
	}
}

// bearerToken extracts the token from "Bearer <token>". The scheme is
// matched case-insensitively; anything other than exactly two parts fails.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
