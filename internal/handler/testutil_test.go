package handler_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	"github.com/iliyamo/auth-service/internal/utils"
)

// The HTTP flows are exercised end to end through the real router,
// middleware and handlers, with the stores swapped for in-memory fakes
// that honor the repository contracts (canonical emails, sentinel
// errors, ledger semantics).

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	nextID uint64
	byID   map[uint64]model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uint64]model.User{}} }

func (f *fakeUsers) Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error) {
	email := repository.CanonicalEmail(nu.Email)
	for _, u := range f.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	f.nextID++
	f.byID[f.nextID] = model.User{
		ID:           f.nextID,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		Email:        email,
		PasswordHash: hash,
		Role:         nu.Role,
		TenantID:     nu.TenantID,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	return f.nextID, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = repository.CanonicalEmail(email)
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	u.PasswordHash = "" // the id read path never selects the hash
	return u, nil
}

func (f *fakeUsers) List(ctx context.Context, q repository.UserQuery) ([]model.User, int, error) {
	matched := []model.User{}
	for _, u := range f.byID {
		if q.Role != "" && u.Role != q.Role {
			continue
		}
		if q.Q != "" {
			full := u.FirstName + " " + u.LastName
			if !strings.Contains(full, q.Q) && !strings.Contains(u.Email, q.Q) {
				continue
			}
		}
		u.PasswordHash = ""
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := len(matched)
	start := (q.CurrentPage - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeUsers) Update(ctx context.Context, id uint64, up repository.UserUpdate) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	email := repository.CanonicalEmail(up.Email)
	for _, other := range f.byID {
		if other.ID != id && other.Email == email {
			return repository.ErrEmailExists
		}
	}
	u.FirstName, u.LastName, u.Email = up.FirstName, up.LastName, email
	u.Role, u.TenantID = up.Role, up.TenantID
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id uint64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeTokens is an in-memory refresh token ledger satisfying both the
// handler's TokenLedger and the middleware's Ledger interfaces.
type fakeTokens struct {
	nextID     uint64
	rows       map[uint64]uint64 // ledger id -> owning user id
	lookupDown bool
	createErr  error // returned by Create when set, simulating a store outage
}

func newFakeTokens() *fakeTokens { return &fakeTokens{rows: map[uint64]uint64{}} }

func (f *fakeTokens) Create(ctx context.Context, userID uint64) (model.RefreshToken, error) {
	if f.createErr != nil {
		return model.RefreshToken{}, f.createErr
	}
	f.nextID++
	f.rows[f.nextID] = userID
	return model.RefreshToken{ID: f.nextID, UserID: userID, ExpiresAt: time.Now().UTC().Add(30 * 24 * time.Hour)}, nil
}

func (f *fakeTokens) Revoke(ctx context.Context, id uint64) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeTokens) IsRevoked(ctx context.Context, id, userID uint64) bool {
	if f.lookupDown {
		return true
	}
	owner, ok := f.rows[id]
	return !ok || owner != userID
}

// fakeTenants is an in-memory TenantStore.
type fakeTenants struct {
	nextID   uint64
	byID     map[uint64]model.Tenant
	occupied map[uint64]bool // tenant ids that still have users
}

func newFakeTenants() *fakeTenants {
	return &fakeTenants{byID: map[uint64]model.Tenant{}, occupied: map[uint64]bool{}}
}

func (f *fakeTenants) Create(ctx context.Context, name, address string) (uint64, error) {
	f.nextID++
	f.byID[f.nextID] = model.Tenant{ID: f.nextID, Name: name, Address: address,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	return f.nextID, nil
}

func (f *fakeTenants) GetByID(ctx context.Context, id uint64) (model.Tenant, error) {
	t, ok := f.byID[id]
	if !ok {
		return model.Tenant{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTenants) List(ctx context.Context) ([]model.Tenant, error) {
	out := []model.Tenant{}
	for _, t := range f.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTenants) Update(ctx context.Context, id uint64, name, address string) error {
	t, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Name, t.Address = name, address
	f.byID[id] = t
	return nil
}

func (f *fakeTenants) Delete(ctx context.Context, id uint64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	if f.occupied[id] {
		return repository.ErrConflict
	}
	delete(f.byID, id)
	return nil
}

// testApp bundles the wired Echo instance with its fakes.
type testApp struct {
	e       *echo.Echo
	users   *fakeUsers
	ledger  *fakeTokens
	tenants *fakeTenants
	issuer  *utils.Issuer
	events  []queue.UserRegisteredEvent
}

func passGate(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	issuer, err := utils.NewIssuer(key, []byte("test-refresh-secret"), "auth-service",
		time.Hour, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	app := &testApp{
		users:   newFakeUsers(),
		ledger:  newFakeTokens(),
		tenants: newFakeTenants(),
		issuer:  issuer,
	}
	// Low bcrypt cost keeps the suite fast; the cost knob itself is
	// covered in the utils package.
	cfg := config.Config{BcryptCost: 4}

	capture := func(ctx context.Context, ev queue.UserRegisteredEvent) error {
		app.events = append(app.events, ev)
		return nil
	}
	auth := handler.NewAuthHandler(cfg, issuer, app.users, app.ledger)
	auth.Publish = capture
	usersHandler := handler.NewUserHandler(cfg, app.users)
	usersHandler.Publish = capture

	gates := router.Gates{Issuer: issuer, Ledger: app.ledger, Limit: passGate, Cache: passGate}
	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, gates)
	router.RegisterTenants(e, handler.NewTenantHandler(app.tenants), gates)
	router.RegisterUsers(e, usersHandler, gates)
	app.e = e
	return app
}

// do performs a request against the app.  body is raw JSON; cookies and
// bearer are optional.
func (a *testApp) do(method, path, body string, cookies []*http.Cookie, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// cookieByName pulls a named cookie out of a response, nil when unset.
func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// adminToken mints an access token with the admin role.
func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	tok, _, err := a.issuer.AccessToken(1000, model.RoleAdmin)
	if err != nil {
		t.Fatalf("issue admin token: %v", err)
	}
	return tok
}

// customerToken mints an access token with the customer role.
func (a *testApp) customerToken(t *testing.T) string {
	t.Helper()
	tok, _, err := a.issuer.AccessToken(1001, model.RoleCustomer)
	if err != nil {
		t.Fatalf("issue customer token: %v", err)
	}
	return tok
}
