package listings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"autostand-backend/internal/application/notifications"
	"autostand-backend/internal/application/reservations"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/infrastructure/storage"
	"autostand-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Search orderings.
const (
	SortRecent     = "recent"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortMileageAsc = "mileage_asc"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 50
	maxPage          = 10000
	defaultMaxImage  = 5 << 20
	maxImagesPerPost = 20
)

var allowedImageExt = map[string]bool{"jpg": true, "png": true, "webp": true, "gif": true}

var (
	ErrNotSeller        = apperror.Forbidden("Only approved sellers can create listings")
	ErrNotOwner         = apperror.Forbidden("Only the owner can change this listing")
	ErrListingSold      = apperror.InvalidState("Sold listings cannot be changed")
	ErrOwnerTransition  = apperror.InvalidState("Owners can only switch a listing between active and paused, or reopen a lapsed reservation")
	ErrLiveReservation  = apperror.InvalidState("Listing is held by a live reservation")
	ErrStatusChanged    = apperror.InvalidState("Listing status changed, reload and try again")
	ErrImageNotFound    = apperror.NotFound("Image not found")
	ErrNoImages         = apperror.Validation("No images provided", map[string]string{"images": "is required"})
	ErrTooManyImages    = apperror.Validation("Too many images", map[string]string{"images": fmt.Sprintf("at most %d per listing", maxImagesPerPost)})
	ErrStoreUnavailable = apperror.New(apperror.KindInternal, "Image storage is not configured")
)

// Service manages vehicle listings and their images.
type Service struct {
	DB            *gorm.DB
	Store         storage.ObjectStore
	Notifier      notifications.Sink
	MaxImageBytes int64
	Now           func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SellerView is the public contact card of a listing owner.
type SellerView struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Surname  string    `json:"surname"`
	Phone    *string   `json:"phone"`
	Location *string   `json:"location"`
}

// View is a listing with its images and owner.
type View struct {
	domain.Listing
	Seller *SellerView `json:"seller"`
}

func viewOf(l domain.Listing) View {
	v := View{Listing: l}
	if l.Owner != nil {
		v.Seller = &SellerView{
			UserID:   l.Owner.UserID,
			Name:     l.Owner.Name,
			Surname:  l.Owner.Surname,
			Phone:    l.Owner.Phone,
			Location: l.Owner.Location,
		}
	}
	return v
}

func withImages(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// SearchQuery filters the public catalogue. Zero values are ignored.
type SearchQuery struct {
	Brand      string
	Model      string
	Category   string
	Fuel       string
	Gearbox    string
	Location   string
	YearMin    *int
	YearMax    *int
	PriceMin   *float64
	PriceMax   *float64
	MileageMax *int
	Sort       string
	Page       int
	Limit      int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func contains(db *gorm.DB, column, value string) *gorm.DB {
	if value = strings.TrimSpace(value); value == "" {
		return db
	}
	return db.Where("LOWER("+column+`) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(value))+"%")
}

func (q SearchQuery) scope(db *gorm.DB) *gorm.DB {
	db = db.Where("status = ?", domain.ListingActive)
	db = contains(db, "brand", q.Brand)
	db = contains(db, "model", q.Model)
	db = contains(db, "category", q.Category)
	db = contains(db, "location", q.Location)
	if q.Fuel != "" {
		db = db.Where("fuel = ?", q.Fuel)
	}
	if q.Gearbox != "" {
		db = db.Where("gearbox = ?", q.Gearbox)
	}
	if q.YearMin != nil {
		db = db.Where("year >= ?", *q.YearMin)
	}
	if q.YearMax != nil {
		db = db.Where("year <= ?", *q.YearMax)
	}
	if q.PriceMin != nil {
		db = db.Where("price >= ?", *q.PriceMin)
	}
	if q.PriceMax != nil {
		db = db.Where("price <= ?", *q.PriceMax)
	}
	if q.MileageMax != nil {
		db = db.Where("mileage <= ?", *q.MileageMax)
	}
	return db
}

func (q SearchQuery) order() string {
	switch q.Sort {
	case SortPriceAsc:
		return "price ASC"
	case SortPriceDesc:
		return "price DESC"
	case SortMileageAsc:
		return "mileage ASC"
	default:
		return `"createdAt" DESC`
	}
}

// Page is one page of search results.
type Page struct {
	Listings []View `json:"listings"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
	Pages    int    `json:"pages"`
}

// Search returns active listings matching q.
func (s *Service) Search(ctx context.Context, q SearchQuery) (*Page, error) {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Page > maxPage {
		q.Page = maxPage
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&domain.Listing{}).Scopes(q.scope).Count(&total).Error; err != nil {
		return nil, err
	}
	var rows []domain.Listing
	err := withImages(s.DB.WithContext(ctx)).Preload("Owner").Scopes(q.scope).
		Order(q.order()).
		Limit(q.Limit).Offset((q.Page - 1) * q.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := &Page{Listings: make([]View, 0, len(rows)), Total: total, Page: q.Page, Limit: q.Limit}
	out.Pages = int(math.Ceil(float64(total) / float64(q.Limit)))
	for _, l := range rows {
		out.Listings = append(out.Listings, viewOf(l))
	}
	return out, nil
}

// Get returns one listing in any state.
func (s *Service) Get(ctx context.Context, listingID uuid.UUID) (*View, error) {
	var l domain.Listing
	if err := withImages(s.DB.WithContext(ctx)).Preload("Owner").Where("listing_id = ?", listingID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}
	v := viewOf(l)
	return &v, nil
}

// Mine lists the actor's own listings, newest first.
func (s *Service) Mine(ctx context.Context, actor domain.Actor) ([]domain.Listing, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	var rows []domain.Listing
	err := withImages(s.DB.WithContext(ctx)).Where("owner_id = ?", actor.UserID).Order(`"createdAt" DESC`).Find(&rows).Error
	return rows, err
}

// CreateCommand holds the fields of a new listing.
type CreateCommand struct {
	Title       string
	Description *string
	Price       *float64
	Brand       string
	Model       string
	Year        int
	Mileage     int
	Fuel        string
	Gearbox     string
	Category    string
	Location    string
}

// Create publishes an active listing and tells every user following its brand.
func (s *Service) Create(ctx context.Context, actor domain.Actor, cmd CreateCommand) (*domain.Listing, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	if strings.TrimSpace(cmd.Title) == "" {
		return nil, apperror.Validation("Title is required", map[string]string{"title": "is required"})
	}

	var listing *domain.Listing
	ctx, flush := notifications.Deferred(ctx)
	defer flush()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner domain.User
		if err := tx.Where("user_id = ?", actor.UserID).First(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrUserNotFound
			}
			return err
		}
		if !owner.CanSell() {
			return ErrNotSeller
		}

		listing = &domain.Listing{
			OwnerID:     owner.UserID,
			Title:       strings.TrimSpace(cmd.Title),
			Description: trimmed(cmd.Description),
			Price:       cmd.Price,
			Brand:       strings.TrimSpace(cmd.Brand),
			Model:       strings.TrimSpace(cmd.Model),
			Year:        cmd.Year,
			Mileage:     cmd.Mileage,
			Fuel:        cmd.Fuel,
			Gearbox:     cmd.Gearbox,
			Category:    strings.TrimSpace(cmd.Category),
			Location:    strings.TrimSpace(cmd.Location),
			Status:      domain.ListingActive,
		}
		if err := tx.Create(listing).Error; err != nil {
			return fmt.Errorf("Failed to create listing: %w", err)
		}
		return s.notifyBrandFollowers(ctx, tx, listing)
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *Service) notifyBrandFollowers(ctx context.Context, tx *gorm.DB, l *domain.Listing) error {
	if l.Brand == "" {
		return nil
	}
	var followers []uuid.UUID
	err := tx.Model(&domain.FavoriteBrand{}).
		Where("LOWER(brand) = ? AND user_id <> ?", strings.ToLower(l.Brand), l.OwnerID).
		Distinct("user_id").Pluck("user_id", &followers).Error
	if err != nil {
		return err
	}
	for _, userID := range followers {
		notifications.NotifyBestEffort(ctx, s.Notifier, tx, notifications.Notice{
			RecipientID: userID,
			Type:        notifications.TypeFavoriteBrand,
			Title:       fmt.Sprintf("Novo %s disponível", l.Brand),
			Message:     fmt.Sprintf("Foi publicado um novo anúncio da sua marca favorita: \"%s\".", l.Title),
			ListingID:   &l.ListingID,
		})
	}
	return nil
}

// UpdateCommand lists editable fields; nil leaves a field unchanged.
type UpdateCommand struct {
	Title       *string
	Description *string
	Price       *float64
	Brand       *string
	Model       *string
	Year        *int
	Mileage     *int
	Fuel        *string
	Gearbox     *string
	Category    *string
	Location    *string
}

func (c UpdateCommand) changes() map[string]interface{} {
	upd := map[string]interface{}{}
	setString := func(col string, v *string) {
		if v != nil {
			upd[col] = strings.TrimSpace(*v)
		}
	}
	setString("title", c.Title)
	setString("brand", c.Brand)
	setString("model", c.Model)
	setString("fuel", c.Fuel)
	setString("gearbox", c.Gearbox)
	setString("category", c.Category)
	setString("location", c.Location)
	if c.Description != nil {
		upd["description"] = trimmed(c.Description)
	}
	if c.Price != nil {
		upd["price"] = *c.Price
	}
	if c.Year != nil {
		upd["year"] = *c.Year
	}
	if c.Mileage != nil {
		upd["mileage"] = *c.Mileage
	}
	return upd
}

// Update edits the owner's listing. Sold listings are frozen.
func (s *Service) Update(ctx context.Context, actor domain.Actor, listingID uuid.UUID, cmd UpdateCommand) (*domain.Listing, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	if cmd.Title != nil && strings.TrimSpace(*cmd.Title) == "" {
		return nil, apperror.Validation("Title is required", map[string]string{"title": "is required"})
	}
	l, err := s.load(ctx, s.DB, listingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != actor.UserID {
		return nil, ErrNotOwner
	}
	if l.OffMarket() {
		return nil, ErrListingSold
	}
	if upd := cmd.changes(); len(upd) > 0 {
		if err := s.DB.WithContext(ctx).Model(l).Updates(upd).Error; err != nil {
			return nil, err
		}
	}
	return s.load(ctx, withImages(s.DB), listingID)
}

// SetStatus changes a listing's state. Owners toggle between active and paused and may
// reopen a reserved listing once its hold has lapsed; administrators may set any state.
func (s *Service) SetStatus(ctx context.Context, actor domain.Actor, listingID uuid.UUID, status string) (*domain.Listing, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	if !domain.IsListingStatus(status) {
		return nil, apperror.Validation("Invalid status", map[string]string{"status": "must be one of: ativo pausado reservado vendido"})
	}
	l, err := s.load(ctx, s.DB, listingID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin {
		if l.OwnerID != actor.UserID {
			return nil, ErrNotOwner
		}
		if err := s.ownerTransition(ctx, l, status); err != nil {
			return nil, err
		}
	}
	res := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("listing_id = ? AND status = ?", l.ListingID, l.Status).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrStatusChanged
	}
	l.Status = status
	return l, nil
}

func (s *Service) ownerTransition(ctx context.Context, l *domain.Listing, to string) error {
	toggle := func(st string) bool { return st == domain.ListingActive || st == domain.ListingPaused }
	switch {
	case toggle(l.Status) && toggle(to):
		return nil
	case l.Status == domain.ListingReserved && to == domain.ListingActive:
		live, err := reservations.LiveHold(s.DB.WithContext(ctx), l.ListingID, s.now())
		if err != nil {
			return err
		}
		if live != nil {
			return ErrLiveReservation
		}
		return nil
	default:
		return ErrOwnerTransition
	}
}

// Upload is one received image file.
type Upload struct {
	Name string
	Data []byte
}

// AddImages stores pictures for the owner's listing. Files are identified by content,
// not by name or declared type.
func (s *Service) AddImages(ctx context.Context, actor domain.Actor, listingID uuid.UUID, files []Upload) ([]domain.ListingImage, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	if s.Store == nil {
		return nil, ErrStoreUnavailable
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	l, err := s.load(ctx, s.DB, listingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != actor.UserID {
		return nil, ErrNotOwner
	}

	var existing int64
	if err := s.DB.WithContext(ctx).Model(&domain.ListingImage{}).Where("listing_id = ?", listingID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if int(existing)+len(files) > maxImagesPerPost {
		return nil, ErrTooManyImages
	}

	type checked struct {
		ext, mime string
		data      []byte
	}
	valid := make([]checked, 0, len(files))
	for _, f := range files {
		if int64(len(f.Data)) > s.maxImageBytes() {
			return nil, apperror.Validation("Image too large", map[string]string{f.Name: fmt.Sprintf("exceeds %d bytes", s.maxImageBytes())})
		}
		kind, err := filetype.Match(f.Data)
		if err != nil || !allowedImageExt[kind.Extension] {
			return nil, apperror.Validation("Unsupported image type", map[string]string{f.Name: "must be a jpeg, png, webp or gif image"})
		}
		valid = append(valid, checked{ext: kind.Extension, mime: kind.MIME.Value, data: f.Data})
	}

	images := make([]domain.ListingImage, 0, len(valid))
	for i, f := range valid {
		key := fmt.Sprintf("listings/%s/%s.%s", listingID, uuid.NewString(), f.ext)
		url, err := s.Store.Put(ctx, key, f.mime, f.data)
		if err != nil {
			s.discard(ctx, images)
			return nil, fmt.Errorf("store image: %w", err)
		}
		images = append(images, domain.ListingImage{
			ListingID: listingID,
			URL:       url,
			ObjectKey: key,
			Position:  int(existing) + i,
		})
	}
	if err := s.DB.WithContext(ctx).Create(&images).Error; err != nil {
		s.discard(ctx, images)
		return nil, err
	}
	return images, nil
}

// DeleteImage removes one picture. The owner or an administrator may do it.
func (s *Service) DeleteImage(ctx context.Context, actor domain.Actor, imageID uuid.UUID) error {
	if actor.Anonymous() {
		return apperror.ErrUnauthenticated
	}
	var img domain.ListingImage
	if err := s.DB.WithContext(ctx).Where("image_id = ?", imageID).First(&img).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrImageNotFound
		}
		return err
	}
	l, err := s.load(ctx, s.DB, img.ListingID)
	if err != nil {
		return err
	}
	if l.OwnerID != actor.UserID && !actor.Admin {
		return ErrNotOwner
	}
	if err := s.DB.WithContext(ctx).Delete(&img).Error; err != nil {
		return err
	}
	s.discard(ctx, []domain.ListingImage{img})
	return nil
}

func (s *Service) discard(ctx context.Context, images []domain.ListingImage) {
	if s.Store == nil {
		return
	}
	for _, img := range images {
		if err := s.Store.Delete(ctx, img.ObjectKey); err != nil {
			log.Warn().Err(err).Str("object_key", img.ObjectKey).Msg("failed to delete stored image")
		}
	}
}

func (s *Service) maxImageBytes() int64 {
	if s.MaxImageBytes > 0 {
		return s.MaxImageBytes
	}
	return defaultMaxImage
}

func (s *Service) load(ctx context.Context, db *gorm.DB, listingID uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	if err := db.WithContext(ctx).Where("listing_id = ?", listingID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
