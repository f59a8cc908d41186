package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// TenantHandler implements tenant management.  Create, update and delete
// are admin-only; the listing is public so registration forms can offer
// tenants without a session.
type TenantHandler struct {
	Tenants TenantStore
}

func NewTenantHandler(tenants TenantStore) *TenantHandler {
	return &TenantHandler{Tenants: tenants}
}

type tenantReq struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type tenantResp struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toTenantResp(t model.Tenant) tenantResp {
	return tenantResp{ID: t.ID, Name: t.Name, Address: t.Address, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

// Create makes a new tenant.
func (h *TenantHandler) Create(c echo.Context) error {
	var req tenantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if fe := validateTenant(&req.Name, &req.Address); fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Message, "field": fe.Field})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Tenants.Create(ctx, req.Name, req.Address)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create tenant failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Update rewrites a tenant's name and address.
func (h *TenantHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	var req tenantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if fe := validateTenant(&req.Name, &req.Address); fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Message, "field": fe.Field})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tenants.Update(ctx, id, req.Name, req.Address); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update tenant failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

// List returns all tenants.
func (h *TenantHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tenants, err := h.Tenants.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list tenants failed"})
	}
	resp := make([]tenantResp, 0, len(tenants))
	for _, t := range tenants {
		resp = append(resp, toTenantResp(t))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetOne returns a single tenant by id.
func (h *TenantHandler) GetOne(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load tenant failed"})
	}
	return c.JSON(http.StatusOK, toTenantResp(t))
}

// Delete removes a tenant.  Tenants that still have users attached are
// protected by restrict-delete and answer with 409.
func (h *TenantHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Tenants.Delete(ctx, id); {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "tenant still has users"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete tenant failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{})
}
