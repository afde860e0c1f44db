package listings

import (
	"fmt"
	"io"

	listsvc "autostand-backend/internal/application/listings"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/middleware"
	"autostand-backend/internal/pkg/apperror"
	"autostand-backend/internal/pkg/response"
	"autostand-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *listsvc.Service
}

type SearchRequest struct {
	Brand      string   `query:"brand"`
	Model      string   `query:"model"`
	Category   string   `query:"category"`
	Fuel       string   `query:"fuel"`
	Gearbox    string   `query:"gearbox"`
	Location   string   `query:"location"`
	YearMin    *int     `query:"year_min" json:"year_min" validate:"omitempty,min=1900"`
	YearMax    *int     `query:"year_max" json:"year_max" validate:"omitempty,min=1900"`
	PriceMin   *float64 `query:"price_min" json:"price_min" validate:"omitempty,min=0"`
	PriceMax   *float64 `query:"price_max" json:"price_max" validate:"omitempty,min=0"`
	MileageMax *int     `query:"mileage_max" json:"mileage_max" validate:"omitempty,min=0"`
	Sort       string   `query:"sort" json:"sort" validate:"omitempty,oneof=recent price_asc price_desc mileage_asc"`
	Page       int      `query:"page" json:"page" validate:"omitempty,min=1,max=10000"`
	Limit      int      `query:"limit" json:"limit" validate:"omitempty,min=1,max=50"`
}

type CreateRequest struct {
	Title       string   `json:"title" validate:"notblank,max=120"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price" validate:"omitempty,min=0"`
	Brand       string   `json:"brand" validate:"notblank"`
	Model       string   `json:"model" validate:"notblank"`
	Year        int      `json:"year" validate:"required,min=1900,max=2100"`
	Mileage     int      `json:"mileage" validate:"min=0"`
	Fuel        string   `json:"fuel"`
	Gearbox     string   `json:"gearbox"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
}

type UpdateRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=120"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price" validate:"omitempty,min=0"`
	Brand       *string  `json:"brand"`
	Model       *string  `json:"model"`
	Year        *int     `json:"year" validate:"omitempty,min=1900,max=2100"`
	Mileage     *int     `json:"mileage" validate:"omitempty,min=0"`
	Fuel        *string  `json:"fuel"`
	Gearbox     *string  `json:"gearbox"`
	Category    *string  `json:"category"`
	Location    *string  `json:"location"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"notblank"`
}

var statusAliases = map[string]string{
	"active":   domain.ListingActive,
	"paused":   domain.ListingPaused,
	"reserved": domain.ListingReserved,
	"sold":     domain.ListingSold,
}

// GET /api/v1/listings
func (h *Handlers) Search(c *fiber.Ctx) error {
	var req SearchRequest
	if err := validation.BindQuery(c, &req); err != nil {
		return response.FromError(c, err)
	}
	page, err := h.Service.Search(c.UserContext(), listsvc.SearchQuery{
		Brand:      req.Brand,
		Model:      req.Model,
		Category:   req.Category,
		Fuel:       req.Fuel,
		Gearbox:    req.Gearbox,
		Location:   req.Location,
		YearMin:    req.YearMin,
		YearMax:    req.YearMax,
		PriceMin:   req.PriceMin,
		PriceMax:   req.PriceMax,
		MileageMax: req.MileageMax,
		Sort:       req.Sort,
		Page:       req.Page,
		Limit:      req.Limit,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	meta := fiber.Map{"total": page.Total, "page": page.Page, "limit": page.Limit, "pages": page.Pages}
	return response.Success(c, "Listings fetched successfully", page.Listings, meta)
}

// GET /api/v1/listings/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	listing, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// GET /api/v1/listings/mine
func (h *Handlers) Mine(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentActor(c)
	rows, err := h.Service.Mine(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", rows, nil)
}

// POST /api/v1/listings
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	listing, err := h.Service.Create(c.UserContext(), actor, listsvc.CreateCommand{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Brand:       req.Brand,
		Model:       req.Model,
		Year:        req.Year,
		Mileage:     req.Mileage,
		Fuel:        req.Fuel,
		Gearbox:     req.Gearbox,
		Category:    req.Category,
		Location:    req.Location,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", listing, nil)
}

// PUT /api/v1/listings/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req UpdateRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	listing, err := h.Service.Update(c.UserContext(), actor, id, listsvc.UpdateCommand{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Brand:       req.Brand,
		Model:       req.Model,
		Year:        req.Year,
		Mileage:     req.Mileage,
		Fuel:        req.Fuel,
		Gearbox:     req.Gearbox,
		Category:    req.Category,
		Location:    req.Location,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing updated successfully", listing, nil)
}

// PATCH /api/v1/listings/:id/status
func (h *Handlers) SetStatus(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req StatusRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return response.FromError(c, err)
	}
	status := req.Status
	if alias, ok := statusAliases[status]; ok {
		status = alias
	}
	actor, _ := middleware.CurrentActor(c)
	listing, err := h.Service.SetStatus(c.UserContext(), actor, id, status)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing status updated", listing, nil)
}

// POST /api/v1/listings/:id/images (multipart, field "images")
func (h *Handlers) AddImages(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return response.FromError(c, listsvc.ErrNoImages)
	}
	var uploads []listsvc.Upload
	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return response.FromError(c, apperror.Validation("Unreadable upload", map[string]string{fh.Filename: "could not be read"}))
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return response.FromError(c, fmt.Errorf("read upload: %w", err))
		}
		uploads = append(uploads, listsvc.Upload{Name: fh.Filename, Data: data})
	}
	actor, _ := middleware.CurrentActor(c)
	images, err := h.Service.AddImages(c.UserContext(), actor, id, uploads)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Images uploaded successfully", images, nil)
}

// DELETE /api/v1/listings/images/:imageId
func (h *Handlers) DeleteImage(c *fiber.Ctx) error {
	id, err := validation.ParamUUID(c, "imageId")
	if err != nil {
		return response.FromError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	if err := h.Service.DeleteImage(c.UserContext(), actor, id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Image deleted", nil, nil)
}
