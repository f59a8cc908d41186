package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	queue_publisher "github.com/iliyamo/auth-service/internal/service"
)

// UserHandler implements the admin-only user management endpoints.
// Unlike self-registration, these accept a role and tenant assignment.
type UserHandler struct {
	Cfg     config.Config
	Users   UserStore
	Publish func(ctx context.Context, ev queue.UserRegisteredEvent) error
}

func NewUserHandler(cfg config.Config, users UserStore) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Publish: queue_publisher.PublishUserRegistered}
}

type createUserReq struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Role      string  `json:"role"`
	TenantID  *uint64 `json:"tenantId"`
}

type updateUserReq struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	TenantID  *uint64 `json:"tenantId"`
}

// Create makes a user with an admin-chosen role and optional tenant.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if fe := validateIdentity(&req.FirstName, &req.LastName, &req.Email); fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Message, "field": fe.Field})
	}
	if fe := validatePassword(req.Password); fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Message, "field": fe.Field})
	}
	role, fe := validateRoleAssignment(req.Role, req.TenantID)
	if fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Message, "field": fe.Field})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      role,
		TenantID:  req.TenantID,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	_ = h.Publish(ctx, queue.UserRegisteredEvent{
		EventID:    uuid.NewString(),
		UserID:     uid,
		Email:      req.Email,
		Role:       string(role),
		TenantID:   req.TenantID,
		OccurredAt: time.Now().UTC(),
	})

	return c.JSON(http.StatusCreated, echo.Map{"id": uid})
}

// Update rewrites a user's identity, role and tenant assignment.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if fe := validateIdentity(&req.FirstName, &req.LastName, &req.Email); fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Message, "field": fe.Field})
	}
	role, fe := validateRoleAssignment(req.Role, req.TenantID)
	if fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Message, "field": fe.Field})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Users.Update(ctx, id, repository.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      role,
		TenantID:  req.TenantID,
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

// List returns a page of users.  Supported query parameters: currentPage,
// pageSize, q (matches name and email) and role.
func (h *UserHandler) List(c echo.Context) error {
	query := repository.UserQuery{
		Q:           strings.TrimSpace(c.QueryParam("q")),
		CurrentPage: queryInt(c, "currentPage", 1),
		PageSize:    queryInt(c, "pageSize", 10),
	}
	if raw := strings.TrimSpace(c.QueryParam("role")); raw != "" {
		role, ok := model.ParseRole(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role", "field": "role"})
		}
		query.Role = role
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, total, err := h.Users.List(ctx, query)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	resp := make([]userResp, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResp(u))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"users":       resp,
		"total":       total,
		"currentPage": query.CurrentPage,
		"pageSize":    query.PageSize,
	})
}

// GetOne returns a single user by id.
func (h *UserHandler) GetOne(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Delete removes a user by id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// queryInt parses a positive integer query parameter with a default.
func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
