// auth.go — опциональная JWT-аутентификация (RS256 + JWKS).
// sub токена становится actor в журнале доступа архива.
// Scopes: archive:read, archive:write, archive:admin.
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/docarchive/internal/api/errors"
)

// Scopes API архива.
const (
	ScopeRead  = "archive:read"
	ScopeWrite = "archive:write"
	ScopeAdmin = "archive:admin"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal — аутентифицированный субъект запроса.
type Principal struct {
	Subject string
	Scopes  []string
}

// HasScope проверяет наличие scope. archive:admin включает все остальные.
func (p *Principal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope) || slices.Contains(p.Scopes, ScopeAdmin)
}

// Claims — JWT claims. Scopes принимаются в двух форматах:
// "scope" (строка через пробел, стандарт OAuth2) и "scopes" (массив).
type Claims struct {
	jwt.RegisteredClaims
	ScopeString string   `json:"scope"`
	ScopeArray  []string `json:"scopes"`
}

// Scopes возвращает объединённый список scope'ов из обоих форматов.
func (c *Claims) Scopes() []string {
	result := strings.Fields(c.ScopeString)
	return append(result, c.ScopeArray...)
}

// JWTAuth — middleware JWT-аутентификации.
type JWTAuth struct {
	jwks   keyfunc.Keyfunc
	leeway time.Duration
	logger *slog.Logger
}

// JWTAuthConfig — параметры JWT middleware.
type JWTAuthConfig struct {
	JWKSURL         string
	CACertPath      string
	TLSSkipVerify   bool
	ClientTimeout   time.Duration
	RefreshInterval time.Duration
	JWTLeeway       time.Duration
}

// NewJWTAuth создаёт middleware с ключами из JWKS endpoint.
// Старт не блокируется недоступностью JWKS: ключи подтянутся при
// следующем обновлении.
func NewJWTAuth(cfg JWTAuthConfig, logger *slog.Logger) (*JWTAuth, error) {
	httpClient, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", cfg.JWKSURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}
	return NewJWTAuthWithKeyfunc(k, cfg.JWTLeeway, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт middleware с готовой keyfunc (тесты, статический JWKS).
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, leeway time.Duration, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:   kf,
		leeway: leeway,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}
}

func buildHTTPClient(cfg JWTAuthConfig) (*http.Client, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // настраивается через DA_TLS_SKIP_VERIFY
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", cfg.CACertPath, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("CA-сертификат %s не содержит PEM-блоков", cfg.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}

	return &http.Client{
		Timeout:   cfg.ClientTimeout,
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	}, nil
}

var errNoBearer = errors.New("ожидается заголовок Authorization: Bearer <token>")

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errNoBearer
	}
	return strings.TrimSpace(token), nil
}

// Authenticate проверяет токен запроса и возвращает субъекта.
func (j *JWTAuth) Authenticate(r *http.Request) (*Principal, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, j.jwks.KeyfuncCtx(r.Context()),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("невалидный или просроченный токен: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("невалидный токен")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.New("отсутствует sub в токене")
	}
	return &Principal{Subject: subject, Scopes: claims.Scopes()}, nil
}

// Middleware отклоняет запросы без валидного токена (401) и помещает
// Principal в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := j.Authenticate(r)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, err.Error())
				return
			}
			recordActor(r.Context(), p.Subject)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireScope отклоняет запрос (403), если у субъекта нет scope.
// Должен использоваться после JWTAuth.Middleware.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				apierrors.Forbidden(w, "Отсутствуют scopes в токене")
				return
			}
			if !p.HasScope(scope) {
				apierrors.Forbidden(w, "Недостаточно прав: требуется scope "+scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal кладёт субъекта в контекст.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext возвращает субъекта запроса или nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// SubjectFromContext возвращает sub субъекта или пустую строку.
func SubjectFromContext(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.Subject
	}
	return ""
}
