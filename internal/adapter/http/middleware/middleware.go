package middleware

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/observability"
	"settlement-ledger/pkg/apperror"
	"settlement-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Header names for signer authentication
	HeaderSigner    = "X-Signer"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"

	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxSigner     = "signer"
	CtxOperator   = "operator"
	CtxResourceID = "resource_id"
)

// SignerAuthConfig bounds timestamp drift and nonce lifetime.
type SignerAuthConfig struct {
	MaxDrift time.Duration
	NonceTTL time.Duration
}

// maxNonceLength matches what the nonce store accepts.
const maxNonceLength = 128

// DefaultSignerAuthConfig allows 60s of drift and keeps nonces for 120s.
func DefaultSignerAuthConfig() SignerAuthConfig {
	return SignerAuthConfig{MaxDrift: 60 * time.Second, NonceTTL: 120 * time.Second}
}

// SignerAuth verifies that the request was signed with the ed25519 key of the
// identity in X-Signer.
// Pipeline: Parse headers -> Check timestamp -> Verify signature -> Check nonce.
func SignerAuth(
	verifier ports.SignatureVerifier,
	nonceStore ports.NonceStore,
	cfg SignerAuthConfig,
	log zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		signerStr := c.GetHeader(HeaderSigner)
		signature := c.GetHeader(HeaderSignature)
		timestampStr := c.GetHeader(HeaderTimestamp)
		nonce := c.GetHeader(HeaderNonce)

		if signerStr == "" || signature == "" || timestampStr == "" || nonce == "" || len(nonce) > maxNonceLength {
			response.Abort(c, apperror.ErrMissingSigner())
			return
		}
		signer, err := domain.ParseIdentity(signerStr)
		if err != nil {
			response.Abort(c, apperror.ErrMissingSigner())
			return
		}

		// Step 1: Timestamp check
		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			response.Abort(c, apperror.ErrTimestampExpired())
			return
		}
		now := time.Now().Unix()
		if math.Abs(float64(now-timestamp)) > cfg.MaxDrift.Seconds() {
			response.Abort(c, apperror.ErrTimestampExpired())
			return
		}

		// Step 2: Signature verification
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, err = io.ReadAll(c.Request.Body)
			if err != nil {
				response.Abort(c, apperror.Validation("cannot read request body"))
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		canonical := verifier.BuildCanonicalString(
			c.Request.Method,
			c.Request.URL.Path,
			timestamp,
			nonce,
			string(bodyBytes),
		)
		if !verifier.Verify(signer, canonical, signature) {
			response.Abort(c, apperror.ErrInvalidSignature())
			return
		}

		// Step 3: Nonce check. Only signed requests may burn a nonce.
		isNew, err := nonceStore.CheckAndSet(c.Request.Context(), signer.String(), nonce, cfg.NonceTTL)
		if err != nil {
			log.Warn().Err(err).Msg("nonce store error, allowing request")
		} else if !isNew {
			response.Abort(c, apperror.ErrNonceUsed())
			return
		}

		c.Set(CtxSigner, signer)
		c.Next()
	}
}

// Signers returns the verified signer set of the request. Empty when the
// route is not behind SignerAuth.
func Signers(c *gin.Context) domain.Signers {
	if v, exists := c.Get(CtxSigner); exists {
		if id, ok := v.(domain.Identity); ok {
			return domain.Signers{id}
		}
	}
	return nil
}

// Signer returns the verified signer of the request.
func Signer(c *gin.Context) (domain.Identity, bool) {
	v, exists := c.Get(CtxSigner)
	if !exists {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

// OperatorAuth validates operator JWTs and requires the given role.
func OperatorAuth(tokenSvc ports.TokenService, role string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			response.Abort(c, apperror.ErrInvalidToken())
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			log.Debug().Err(err).Msg("operator token rejected")
			response.Abort(c, apperror.ErrInvalidToken())
			return
		}
		if claims.Role != role {
			response.Abort(c, apperror.ErrForbiddenRole())
			return
		}

		c.Set(CtxOperator, claims.Subject)
		c.Next()
	}
}

// RequestID propagates X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Metrics records request counts and latencies per matched route.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if last := c.Errors.Last(); last != nil {
			event = event.AnErr("cause", last.Err)
		}
		event.
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(response.RequestIDKey)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Abort(c, apperror.InternalError(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
