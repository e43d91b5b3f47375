package airtimesvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/observability"
)

const (
	requestIDMetadataKey     = "x-request-id"
	authorizationMetadataKey = "authorization"
)

// ServerInterceptors is the unary chain installed by airtime-server. The
// metrics interceptor runs before auth so Unauthenticated calls are counted.
func ServerInterceptors(log logging.Logger, verifier *TokenVerifier, collector *observability.AirtimeCollector) grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		RequestIDUnaryServerInterceptor(log),
		collector.UnaryServerInterceptor(),
		AuthUnaryServerInterceptor(verifier),
		TracingUnaryServerInterceptor(),
	)
}

// RequestIDUnaryServerInterceptor ensures a request_id is present on the
// context, sourcing it from inbound metadata if provided, and attaches a
// per-request logger annotated with request_id and method.
func RequestIDUnaryServerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = logging.Noop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if incoming := firstHeader(md, requestIDMetadataKey); incoming != "" {
				ctx = logging.ContextWithRequestID(ctx, incoming)
			}
		}

		ctx, reqLog := logging.WithRequestLogger(ctx, base.With(logging.String("method", info.FullMethod)))
		ctx = logging.ContextWithLogger(ctx, reqLog)

		return handler(ctx, req)
	}
}

// TokenVerifier checks HS256 bearer tokens issued with a shared secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier returns a verifier for secret, which must not be empty.
func NewTokenVerifier(secret string) (*TokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("HS256 requires a secret key")
	}
	return &TokenVerifier{secret: []byte(secret)}, nil
}

// Verify parses token and returns its subject claim.
func (v *TokenVerifier) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("missing 'sub' claim")
	}
	return claims.Subject, nil
}

// Sign issues a token for subject. Used by clients and tests sharing the secret.
func (v *TokenVerifier) Sign(claims jwt.RegisteredClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// AuthUnaryServerInterceptor rejects calls without a valid
// "authorization: Bearer <token>" header. A nil verifier disables the check.
func AuthUnaryServerInterceptor(v *TokenVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if v == nil {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		header := firstHeader(md, authorizationMetadataKey)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		subject, err := v.Verify(token)
		if err != nil {
			logging.FromContext(ctx, nil).Warn(ctx, "rejected token", logging.Err(err))
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		ctx = logging.ContextWithLogger(ctx, logging.FromContext(ctx, nil).With(logging.String("subject", subject)))
		return handler(ctx, req)
	}
}

func firstHeader(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
