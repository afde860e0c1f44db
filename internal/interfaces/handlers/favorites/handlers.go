package favorites

import (
	favsvc "autostand-backend/internal/application/favorites"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *favsvc.Service
}

type BrandRequest struct {
	Brand string `json:"brand" validate:"notblank,max=60"`
}

type FilterRequest struct {
	Name    string                 `json:"name" validate:"notblank,max=100"`
	Filters map[string]interface{} `json:"filters" validate:"required"`
}

// POST /api/v1/favorites/brands
func (h *Handlers) AddBrand(c *fiber.Ctx) error {
	var req BrandRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	fav, err := h.Service.AddBrand(c.UserContext(), actor, req.Brand)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Brand added to favorites", fav, nil)
}

// GET /api/v1/favorites/brands
func (h *Handlers) ListBrands(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.ListBrands(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Favorite brands fetched successfully", rows, nil)
}

// DELETE /api/v1/favorites/brands/:id
func (h *Handlers) RemoveBrand(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	if err := h.Service.RemoveBrand(c.UserContext(), actor, id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Brand removed from favorites", nil, nil)
}

// POST /api/v1/favorites/filters
func (h *Handlers) SaveFilter(c *fiber.Ctx) error {
	var req FilterRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	f, err := h.Service.SaveFilter(c.UserContext(), actor, req.Name, req.Filters)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Filter saved", f, nil)
}

// GET /api/v1/favorites/filters
func (h *Handlers) ListFilters(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.ListFilters(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Saved filters fetched successfully", rows, nil)
}

// DELETE /api/v1/favorites/filters/:id
func (h *Handlers) RemoveFilter(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	if err := h.Service.RemoveFilter(c.UserContext(), actor, id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Filter removed", nil, nil)
}
