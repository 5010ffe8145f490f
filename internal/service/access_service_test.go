package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/dormfix-api/internal/models"
	"github.com/noah-isme/dormfix-api/pkg/config"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
)

type accessFixture struct {
	svc   *AccessService
	cache *memoryCacheRepo
	audit *recordingAudit
}

func newAccessFixture(t *testing.T, studentScope string) *accessFixture {
	t.Helper()
	table, err := config.LoadAccessTable("")
	require.NoError(t, err)
	repo := newMemoryCacheRepo()
	audit := &recordingAudit{}
	svc, err := NewAccessService(table, NewCacheService(repo, nil, 0, nil, true), audit, nil, nil, AccessConfig{
		Secret:       "test-secret",
		TTL:          24 * time.Hour,
		Issuer:       "dormfix-test",
		StudentScope: studentScope,
		BcryptCost:   bcrypt.MinCost,
	})
	require.NoError(t, err)
	return &accessFixture{svc: svc, cache: repo, audit: audit}
}

func TestAccessLoginSuccess(t *testing.T) {
	f := newAccessFixture(t, "submitter")

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{
		Email:    "warden.podhigai@dormfix.com",
		Password: "password",
		IP:       "10.1.1.1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleWarden, resp.Session.Role)
	assert.Equal(t, "Podhigai", resp.Session.HostelName)
	assert.Equal(t, "/warden", resp.LandingRoute)
	assert.Equal(t, int64(86400), resp.ExpiresIn)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, []string{models.AuditActionLogin}, f.audit.actions())

	claims, err := f.svc.ParseToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "warden.podhigai@dormfix.com", claims.Subject)
	assert.Equal(t, "Podhigai", claims.Session().HostelName)
	assert.NotEmpty(t, claims.ID)
}

func TestAccessLoginWrongPassword(t *testing.T) {
	f := newAccessFixture(t, "submitter")

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "admin@dormfix.com", Password: "nope"})
	require.Error(t, err)
	assert.Nil(t, resp)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Equal(t, "Invalid credentials. Please try again.", appErr.Message)
	assert.Empty(t, appErr.Fields)
	assert.Equal(t, []string{models.AuditActionLoginFailed}, f.audit.actions())
}

func TestAccessAuthenticateFailures(t *testing.T) {
	f := newAccessFixture(t, "submitter")
	ctx := context.Background()

	_, err := f.svc.Authenticate(ctx, "ghost@dormfix.com", "password", "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = f.svc.Authenticate(ctx, "admin@dormfix.com", "password", models.RoleStudent)
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	session, err := f.svc.Authenticate(ctx, "admin@dormfix.com", "password", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, session.Role)
}

func TestAccessLogoutRevokesToken(t *testing.T) {
	f := newAccessFixture(t, "submitter")
	ctx := context.Background()

	token, _, err := f.svc.IssueToken(models.Session{Identifier: "admin@dormfix.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	claims, err := f.svc.ParseToken(ctx, token)
	require.NoError(t, err)

	f.svc.Logout(ctx, claims, models.ClientInfo{})

	_, err = f.svc.ParseToken(ctx, token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.Contains(t, f.cache.keys(), "session:revoked:"+claims.ID)
	assert.Equal(t, []string{models.AuditActionLogout}, f.audit.actions())
}

func TestAccessParseTokenRejectsExpiredAndForeign(t *testing.T) {
	f := newAccessFixture(t, "submitter")
	ctx := context.Background()

	token, _, err := f.svc.IssueToken(models.Session{Identifier: "admin@dormfix.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = f.svc.ParseToken(ctx, token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	f.svc.now = time.Now

	other := newAccessFixture(t, "submitter")
	other.svc.config.Secret = "another-secret"
	foreign, _, err := other.svc.IssueToken(models.Session{Identifier: "admin@dormfix.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = f.svc.ParseToken(ctx, foreign)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAccessScopeFilter(t *testing.T) {
	f := newAccessFixture(t, "submitter")

	assert.Equal(t, models.RequestFilter{}, f.svc.ScopeFilter(models.Session{Role: models.RoleAdmin}))
	assert.Equal(t, models.RequestFilter{}, f.svc.ScopeFilter(models.Session{Role: models.RoleUser}))
	assert.Equal(t, models.RequestFilter{HostelName: "Vaigai"},
		f.svc.ScopeFilter(models.Session{Role: models.RoleWarden, HostelName: "Vaigai"}))
	assert.Equal(t, models.RequestFilter{HostelName: "Podhigai", Floor: "2"},
		f.svc.ScopeFilter(models.Session{Role: models.RoleFloorIncharge, HostelName: "Podhigai", Floor: "2"}))
	assert.Equal(t, models.RequestFilter{RegisterNumber: "21CS001"},
		f.svc.ScopeFilter(models.Session{Role: models.RoleStudent, RegisterNumber: "21CS001"}))

	open := newAccessFixture(t, "none")
	assert.Equal(t, models.RequestFilter{},
		open.svc.ScopeFilter(models.Session{Role: models.RoleStudent, RegisterNumber: "21CS001"}))
}

func TestAccessInScope(t *testing.T) {
	f := newAccessFixture(t, "submitter")
	req := &models.MaintenanceRequest{HostelName: "Podhigai", Floor: "2", RegisterNumber: "21CS001"}

	assert.True(t, f.svc.InScope(models.Session{Role: models.RoleWarden, HostelName: "Podhigai"}, req))
	assert.False(t, f.svc.InScope(models.Session{Role: models.RoleWarden, HostelName: "Vaigai"}, req))
	assert.False(t, f.svc.InScope(models.Session{Role: models.RoleFloorIncharge, HostelName: "Podhigai", Floor: "1"}, req))
	assert.False(t, f.svc.InScope(models.Session{Role: models.RoleStudent}, req))
}

func TestAccessDefaultLandingRoute(t *testing.T) {
	f := newAccessFixture(t, "submitter")

	cases := map[models.UserRole]string{
		models.RoleAdmin:         "/admin-dashboard",
		models.RoleUser:          "/user-dashboard",
		models.RoleStudent:       "/student",
		models.RoleWarden:        "/warden",
		models.RoleFloorIncharge: "/floor-incharge",
		"janitor":                "/login",
	}
	for role, want := range cases {
		assert.Equal(t, want, f.svc.DefaultLandingRoute(role), string(role))
	}
}

func TestAccessDecideRoute(t *testing.T) {
	f := newAccessFixture(t, "submitter")
	warden := &models.Session{Role: models.RoleWarden, HostelName: "Podhigai"}

	cases := []struct {
		name    string
		session *models.Session
		path    string
		want    models.RouteDecision
	}{
		{"anonymous on login", nil, "/login", models.RouteDecision{Allowed: true}},
		{"anonymous on public page", nil, "/", models.RouteDecision{Allowed: true}},
		{"anonymous on protected", nil, "/warden", models.RouteDecision{Redirect: "/login"}},
		{"authenticated on login", warden, "/login", models.RouteDecision{Redirect: "/warden"}},
		{"own prefix", warden, "/warden/requests", models.RouteDecision{Allowed: true}},
		{"foreign prefix", warden, "/admin-dashboard", models.RouteDecision{Redirect: "/warden"}},
		{"lookalike prefix", nil, "/wardenship", models.RouteDecision{Allowed: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.svc.DecideRoute(tc.session, tc.path))
		})
	}
}

func TestAccessRejectsUnscopedAccounts(t *testing.T) {
	table := &config.AccessTable{
		Roles: []config.RoleEntry{{Name: "warden", LandingRoute: "/warden", Scope: "hostel"}},
		Accounts: []config.AccountEntry{
			{Email: "w@dormfix.com", Password: "password", Role: "warden"},
		},
	}
	_, err := NewAccessService(table, nil, nil, nil, nil, AccessConfig{Secret: "s", BcryptCost: bcrypt.MinCost})
	assert.Error(t, err)
}
