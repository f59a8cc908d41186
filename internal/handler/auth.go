package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	queue_publisher "github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.  Publish is the
// event sink for registration events; it defaults to the RabbitMQ
// publisher and is swappable in tests.
type AuthHandler struct {
	Cfg     config.Config
	Issuer  *utils.Issuer
	Users   UserStore
	Ledger  TokenLedger
	Publish func(ctx context.Context, ev queue.UserRegisteredEvent) error
}

func NewAuthHandler(cfg config.Config, issuer *utils.Issuer, users UserStore, ledger TokenLedger) *AuthHandler {
	return &AuthHandler{
		Cfg:     cfg,
		Issuer:  issuer,
		Users:   users,
		Ledger:  ledger,
		Publish: queue_publisher.PublishUserRegistered,
	}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tenantPart struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// userResp is the read shape of a user.  The password hash has no field
// here, so it can never be serialized.
type userResp struct {
	ID        uint64      `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      model.Role  `json:"role"`
	Tenant    *tenantPart `json:"tenant,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func toUserResp(u model.User) userResp {
	resp := userResp{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Tenant != nil {
		resp.Tenant = &tenantPart{ID: u.Tenant.ID, Name: u.Tenant.Name, Address: u.Tenant.Address}
	}
	return resp
}

// Register creates a customer account and opens a session.  Self
// registration always yields the customer role; elevated roles are only
// assigned through the admin user endpoints.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if fe := validateIdentity(&req.FirstName, &req.LastName, &req.Email); fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Message, "field": fe.Field})
	}
	if fe := validatePassword(req.Password); fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Message, "field": fe.Field})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      model.RoleCustomer,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	if err := h.openSession(c, ctx, uid, model.RoleCustomer); err != nil {
		// The user row exists; a retry-login recovers the session.
		log.Printf("auth: register session for user %d: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open session failed"})
	}

	// Best effort: a broker outage must not fail the registration.
	_ = h.Publish(ctx, queue.UserRegisteredEvent{
		EventID:    uuid.NewString(),
		UserID:     uid,
		Email:      req.Email,
		Role:       string(model.RoleCustomer),
		OccurredAt: time.Now().UTC(),
	})

	return c.JSON(http.StatusCreated, echo.Map{"id": uid})
}

// Login verifies credentials and opens a session.  Unknown email and wrong
// password produce the identical response, so callers cannot probe which
// emails are registered.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = repository.CanonicalEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid credentials"})
	}

	if err := h.openSession(c, ctx, u.ID, u.Role); err != nil {
		log.Printf("auth: login session for user %d: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": u.ID})
}

// Self returns the authenticated user's record, tenant relation included,
// password hash excluded.
func (h *AuthHandler) Self(c echo.Context) error {
	uid, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Refresh rotates the session off a validated refresh token.  A new ledger
// row is created and the new refresh token issued before the old row is
// revoked, so a crash mid-rotation can leave a transient overlap of two
// valid tokens but never a user with none.
func (h *AuthHandler) Refresh(c echo.Context) error {
	uid, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	oldID, ok := c.Get(middleware.CtxRefreshID).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	if err := h.openSession(c, ctx, u.ID, u.Role); err != nil {
		// The old ledger row stays untouched: revocation is sequenced
		// strictly after a successful rotation, so a failed attempt leaves
		// the presented token usable for a retry.
		log.Printf("auth: refresh session for user %d: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open session failed"})
	}
	if err := h.Ledger.Revoke(ctx, oldID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": u.ID})
}

// Logout revokes the presented refresh token's ledger row and clears both
// cookies.  Revoking an already-absent row is not an error, so repeated
// logouts succeed.
func (h *AuthHandler) Logout(c echo.Context) error {
	oldID, ok := c.Get(middleware.CtxRefreshID).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Ledger.Revoke(ctx, oldID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	clearTokenCookies(c)
	return c.JSON(http.StatusOK, echo.Map{})
}

// openSession issues the access token, writes a new ledger row, issues the
// refresh token bound to it and sets both cookies.  The ledger row must
// exist before the refresh token is signed: its id is the token's jti.
// It never writes a response: a non-nil error means no cookies were set
// and the caller still owns the reply.
func (h *AuthHandler) openSession(c echo.Context, ctx context.Context, uid uint64, role model.Role) error {
	access, accessExp, err := h.Issuer.AccessToken(uid, role)
	if err != nil {
		return fmt.Errorf("issue access: %w", err)
	}
	row, err := h.Ledger.Create(ctx, uid)
	if err != nil {
		return fmt.Errorf("save refresh: %w", err)
	}
	refresh, refreshExp, err := h.Issuer.RefreshToken(uid, role, row.ID)
	if err != nil {
		_ = h.Ledger.Revoke(ctx, row.ID) // do not leave an orphan row for a token that was never issued
		return fmt.Errorf("issue refresh: %w", err)
	}
	setTokenCookies(c, access, accessExp, refresh, refreshExp)
	return nil
}

// setTokenCookies writes both token carriers.  httpOnly keeps them away
// from scripts; SameSite=Strict keeps them off cross-site requests.
func setTokenCookies(c echo.Context, access string, accessExp time.Time, refresh string, refreshExp time.Time) {
	c.SetCookie(authCookie("accessToken", access, accessExp))
	c.SetCookie(authCookie("refreshToken", refresh, refreshExp))
}

func clearTokenCookies(c echo.Context) {
	expired := time.Unix(0, 0)
	for _, name := range []string{"accessToken", "refreshToken"} {
		ck := authCookie(name, "", expired)
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}

func authCookie(name, value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp) / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
