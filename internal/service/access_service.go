package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/dormfix-api/internal/models"
	"github.com/noah-isme/dormfix-api/pkg/config"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
)

const (
	// LoginRoute is where unauthenticated visitors are sent.
	LoginRoute = "/login"

	revokedSessionPrefix = "session:revoked:"
)

// AccessConfig defines session signing and scoping options.
type AccessConfig struct {
	Secret       string
	TTL          time.Duration
	Issuer       string
	StudentScope string
	BcryptCost   int
}

type accessAccount struct {
	entry config.AccountEntry
	hash  []byte
}

// AccessService authenticates accounts from the access table, issues session
// tokens and decides what each role may see.
type AccessService struct {
	roles     map[models.UserRole]config.RoleEntry
	roleOrder []config.RoleEntry
	accounts  map[string]accessAccount
	decoy     []byte
	cache     *CacheService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AccessConfig
	now       func() time.Time
}

// NewAccessService indexes the access table and hashes plaintext credentials.
func NewAccessService(table *config.AccessTable, cache *CacheService, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, cfg AccessConfig) (*AccessService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Secret == "" {
		return nil, errors.New("access: session secret is required")
	}

	s := &AccessService{
		roles:     make(map[models.UserRole]config.RoleEntry, len(table.Roles)),
		roleOrder: table.Roles,
		accounts:  make(map[string]accessAccount, len(table.Accounts)),
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
	for _, role := range table.Roles {
		s.roles[models.UserRole(role.Name)] = role
	}

	for _, entry := range table.Accounts {
		if err := s.checkAccountScope(entry); err != nil {
			return nil, err
		}
		hash := []byte(entry.PasswordHash)
		if len(hash) == 0 {
			generated, err := bcrypt.GenerateFromPassword([]byte(entry.Password), cfg.BcryptCost)
			if err != nil {
				return nil, fmt.Errorf("hash credential for %s: %w", entry.Email, err)
			}
			hash = generated
		}
		entry.Password = ""
		s.accounts[strings.TrimSpace(entry.Email)] = accessAccount{entry: entry, hash: hash}
	}

	decoy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash decoy credential: %w", err)
	}
	s.decoy = decoy
	return s, nil
}

func (s *AccessService) checkAccountScope(entry config.AccountEntry) error {
	switch s.scopeOf(models.UserRole(entry.Role)) {
	case models.ScopeHostel:
		if entry.HostelName == "" {
			return fmt.Errorf("access: account %s needs hostelName for its role", entry.Email)
		}
	case models.ScopeHostelFloor:
		if entry.HostelName == "" || entry.Floor == "" {
			return fmt.Errorf("access: account %s needs hostelName and floor for its role", entry.Email)
		}
	case models.ScopeSubmitter:
		if entry.RegisterNumber == "" {
			return fmt.Errorf("access: account %s needs registerNumber for its role", entry.Email)
		}
	}
	return nil
}

// Login authenticates credentials and issues a session token.
func (s *AccessService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	client := models.ClientInfo{IP: req.IP, UserAgent: req.UserAgent}
	if err := s.validator.Struct(req); err != nil {
		s.recordLoginFailure(req.Email, client)
		return nil, appErrors.ErrInvalidCredentials
	}

	session, err := s.Authenticate(ctx, req.Email, req.Password, req.Role)
	if err != nil {
		s.recordLoginFailure(req.Email, client)
		return nil, err
	}

	token, _, err := s.IssueToken(*session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.audit.Record(models.AuditEvent{
		Actor:      session.Identifier,
		Action:     models.AuditActionLogin,
		Resource:   "session",
		ResourceID: session.Identifier,
		New:        map[string]string{"role": string(session.Role)},
		Client:     client,
	})

	return &models.LoginResponse{
		Session:      *session,
		LandingRoute: s.DefaultLandingRoute(session.Role),
		ExpiresIn:    int64(s.config.TTL.Seconds()),
		Token:        token,
	}, nil
}

func (s *AccessService) recordLoginFailure(identifier string, client models.ClientInfo) {
	s.audit.Record(models.AuditEvent{
		Actor:    identifier,
		Action:   models.AuditActionLoginFailed,
		Resource: "session",
		Client:   client,
	})
}

// Authenticate matches identifier and secret against the access table. When
// role is set it must equal the account's role. Every mismatch yields the same error.
func (s *AccessService) Authenticate(ctx context.Context, identifier, secret string, role models.UserRole) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	account, ok := s.accounts[strings.TrimSpace(identifier)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.decoy, []byte(secret))
		return nil, appErrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(account.hash, []byte(secret)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if role != "" && models.UserRole(account.entry.Role) != role {
		return nil, appErrors.ErrInvalidCredentials
	}

	return &models.Session{
		Identifier:     account.entry.Email,
		Name:           account.entry.Name,
		Role:           models.UserRole(account.entry.Role),
		HostelName:     account.entry.HostelName,
		Floor:          account.entry.Floor,
		RegisterNumber: account.entry.RegisterNumber,
	}, nil
}

// IssueToken signs an HS256 session token for session.
func (s *AccessService) IssueToken(session models.Session) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.TTL)
	claims := &models.SessionClaims{
		Role:           session.Role,
		Name:           session.Name,
		HostelName:     session.HostelName,
		Floor:          session.Floor,
		RegisterNumber: session.RegisterNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   session.Identifier,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates a session token and rejects revoked ones.
func (s *AccessService) ParseToken(ctx context.Context, tokenString string) (*models.SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
	}
	if _, known := s.roles[claims.Role]; !known {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
	}

	if claims.ID != "" {
		revoked, err := s.cache.Exists(ctx, revokedSessionPrefix+claims.ID)
		if err != nil {
			s.logger.Warn("session revocation check failed", zap.Error(err))
		}
		if revoked {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session revoked")
		}
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AccessService) Logout(ctx context.Context, claims *models.SessionClaims, client models.ClientInfo) {
	if claims == nil {
		return
	}
	if claims.ID != "" && claims.ExpiresAt != nil {
		if ttl := claims.ExpiresAt.Sub(s.now()); ttl > 0 {
			if err := s.cache.Set(ctx, revokedSessionPrefix+claims.ID, true, ttl); err != nil {
				s.logger.Warn("session revocation not stored", zap.Error(err))
			}
		}
	}
	s.audit.Record(models.AuditEvent{
		Actor:      claims.Subject,
		Action:     models.AuditActionLogout,
		Resource:   "session",
		ResourceID: claims.Subject,
		Client:     client,
	})
}

func (s *AccessService) scopeOf(role models.UserRole) models.ScopeKind {
	entry, ok := s.roles[role]
	if !ok {
		return models.ScopeSubmitter
	}
	scope := models.ScopeKind(entry.Scope)
	if scope == "" {
		return models.ScopeNone
	}
	if scope == models.ScopeSubmitter && s.config.StudentScope == string(models.ScopeNone) {
		return models.ScopeNone
	}
	return scope
}

// ScopeFilter narrows the request store to what session may see.
func (s *AccessService) ScopeFilter(session models.Session) models.RequestFilter {
	switch s.scopeOf(session.Role) {
	case models.ScopeHostel:
		return models.RequestFilter{HostelName: session.HostelName}
	case models.ScopeHostelFloor:
		return models.RequestFilter{HostelName: session.HostelName, Floor: session.Floor}
	case models.ScopeSubmitter:
		return models.RequestFilter{RegisterNumber: session.RegisterNumber}
	default:
		return models.RequestFilter{}
	}
}

// InScope reports whether session may see r.
func (s *AccessService) InScope(session models.Session, r *models.MaintenanceRequest) bool {
	filter := s.ScopeFilter(session)
	if s.scopeOf(session.Role) == models.ScopeSubmitter && filter.RegisterNumber == "" {
		return false
	}
	return filter.Matches(r)
}

// IsStaff reports whether role manages requests rather than filing them.
func (s *AccessService) IsStaff(role models.UserRole) bool {
	return s.roles[role].Staff
}

// DefaultLandingRoute returns the role's home page, or the login page for unknown roles.
func (s *AccessService) DefaultLandingRoute(role models.UserRole) string {
	if entry, ok := s.roles[role]; ok {
		return entry.LandingRoute
	}
	return LoginRoute
}

// DecideRoute tells the client whether path may be shown to session, and
// where to go instead when it may not.
func (s *AccessService) DecideRoute(session *models.Session, path string) models.RouteDecision {
	if path == "" {
		path = "/"
	}
	if session != nil && (path == LoginRoute || strings.HasPrefix(path, LoginRoute+"/")) {
		return models.RouteDecision{Allowed: false, Redirect: s.DefaultLandingRoute(session.Role)}
	}

	protected := false
	owned := false
	for _, role := range s.roleOrder {
		for _, prefix := range role.ProtectedPrefixes {
			if !underPrefix(path, prefix) {
				continue
			}
			protected = true
			if session != nil && models.UserRole(role.Name) == session.Role {
				owned = true
			}
		}
	}

	switch {
	case !protected:
		return models.RouteDecision{Allowed: true}
	case session == nil:
		return models.RouteDecision{Allowed: false, Redirect: LoginRoute}
	case !owned:
		return models.RouteDecision{Allowed: false, Redirect: s.DefaultLandingRoute(session.Role)}
	default:
		return models.RouteDecision{Allowed: true}
	}
}

func underPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
