package router

import (
	"os"
	"time"

	adminsvc "autostand-backend/internal/application/admin"
	authsvc "autostand-backend/internal/application/auth"
	emailsvc "autostand-backend/internal/application/emails"
	favsvc "autostand-backend/internal/application/favorites"
	healthsvc "autostand-backend/internal/application/health"
	listsvc "autostand-backend/internal/application/listings"
	msgsvc "autostand-backend/internal/application/messages"
	notifsvc "autostand-backend/internal/application/notifications"
	ordersvc "autostand-backend/internal/application/orders"
	repsvc "autostand-backend/internal/application/reports"
	ressvc "autostand-backend/internal/application/reservations"
	usersvc "autostand-backend/internal/application/user"
	visitsvc "autostand-backend/internal/application/visits"
	"autostand-backend/internal/config"
	"autostand-backend/internal/constants"
	"autostand-backend/internal/infrastructure/database"
	"autostand-backend/internal/infrastructure/storage"
	adminhandler "autostand-backend/internal/interfaces/handlers/admin"
	authhandler "autostand-backend/internal/interfaces/handlers/auth"
	favhandler "autostand-backend/internal/interfaces/handlers/favorites"
	healthhandler "autostand-backend/internal/interfaces/handlers/health"
	listhandler "autostand-backend/internal/interfaces/handlers/listings"
	msghandler "autostand-backend/internal/interfaces/handlers/messages"
	notifhandler "autostand-backend/internal/interfaces/handlers/notifications"
	orderhandler "autostand-backend/internal/interfaces/handlers/orders"
	rephandler "autostand-backend/internal/interfaces/handlers/reports"
	reshandler "autostand-backend/internal/interfaces/handlers/reservations"
	userhandler "autostand-backend/internal/interfaces/handlers/user"
	visithandler "autostand-backend/internal/interfaces/handlers/visits"
	"autostand-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	uploadsPath      = "/uploads"
	imagesPerRequest = 10
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ConfigureLogging sets the global zerolog level and uses a console writer outside production.
func ConfigureLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func objectStore(cfg *config.Config) storage.ObjectStore {
	if cfg.SupabaseURL != "" && cfg.SupabaseSecretKey != "" {
		return &storage.SupabaseStore{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey, Bucket: cfg.SupabaseBucket}
	}
	return &storage.LocalStore{Dir: cfg.UploadDir, BaseURL: uploadsPath}
}

// bodyLimit admits a multipart batch of full-size images plus form overhead.
func bodyLimit(maxImage int64) int {
	if maxImage <= 0 {
		maxImage = 5 << 20
	}
	return int(maxImage)*imagesPerRequest + 1<<20
}

// CreateApp wires config, database, Redis, services and routes into a Fiber app.
// Without DATABASE_URL only the health and auth endpoints are mounted.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
		BodyLimit:               bodyLimit(cfg.MaxImageBytes),
	})

	rdb, err := openRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		if db, err = database.Open(cfg.DatabaseURL); err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	tokens := authsvc.NewTokenManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
	lockout := &middleware.Lockout{Rdb: rdb}

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Session(rdb))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Identify(middleware.IdentityConfig{Tokens: tokens, Rdb: rdb}))

	hh := &healthhandler.Handlers{
		Collector:      &healthsvc.Collector{Rdb: rdb, PingURLs: cfg.HealthPingURLs},
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if db != nil {
		hh.Collector.DB = &gormDBPinger{db: db}
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	credentialLimit := middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute)
	ah := &authhandler.Handlers{
		UserFinder: userFinder,
		Tokens:     tokens,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	api := app.Group("/api/v1")
	authGroup := api.Group("/auth")
	authGroup.Post("/login", credentialLimit, ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if db == nil {
		log.Warn().Msg("DATABASE_URL not set; only health and auth routes are mounted")
		return app, nil, rdb, nil
	}

	app.Static(uploadsPath, cfg.UploadDir)

	var mailer emailsvc.Sender
	if cfg.SendinblueAPIKey != "" {
		mailer = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	}
	store := objectStore(cfg)
	notifier := &notifsvc.Service{DB: db, Rdb: rdb}
	auth := middleware.RequireAuth()

	// Accounts
	uh := &userhandler.Handlers{
		Service: &usersvc.Service{
			DB:            db,
			Mailer:        mailer,
			PublicBaseURL: cfg.PublicBaseURL,
			ExposeTokens:  !cfg.IsProduction() && mailer == nil,
		},
		Lockout: lockout,
	}
	authGroup.Post("/register", credentialLimit, uh.Register)
	authGroup.Get("/validate-email", uh.ValidateEmail)
	authGroup.Post("/resend-validation", credentialLimit, uh.ResendValidation)
	api.Get("/profile", auth, uh.GetProfile)
	api.Put("/profile", auth, uh.UpdateProfile)

	// Listings
	lh := &listhandler.Handlers{Service: &listsvc.Service{
		DB:            db,
		Store:         store,
		Notifier:      notifier,
		MaxImageBytes: cfg.MaxImageBytes,
	}}
	lg := api.Group("/listings")
	lg.Get("/", lh.Search)
	lg.Get("/mine", auth, lh.Mine)
	lg.Delete("/images/:imageId", auth, lh.DeleteImage)
	lg.Get("/:id", lh.Get)
	lg.Post("/", auth, middleware.AuthorizePermission(constants.PublishListing), lh.Create)
	lg.Put("/:id", auth, lh.Update)
	lg.Patch("/:id/status", auth, lh.SetStatus)
	lg.Post("/:id/images", auth, lh.AddImages)

	// Reservations
	rh := &reshandler.Handlers{Service: &ressvc.Service{DB: db, Notifier: notifier, DefaultDays: cfg.ReservationDays}}
	rg := api.Group("/reservations", auth)
	rg.Post("/", rh.Create)
	rg.Get("/", rh.ListMine)
	rg.Get("/seller", rh.ListForSeller)
	rg.Post("/:id/respond", rh.Respond)

	// Reports
	reph := &rephandler.Handlers{Service: &repsvc.Service{DB: db, Notifier: notifier}}
	repg := api.Group("/reports", auth)
	repg.Post("/", reph.File)
	repg.Get("/", reph.List)
	repg.Get("/:id", reph.Get)
	repg.Post("/:id/review", middleware.AuthorizePermission(constants.ReviewReports), reph.Review)

	// Notifications
	nh := &notifhandler.Handlers{Service: notifier}
	ng := api.Group("/notifications", auth)
	ng.Get("/", nh.List)
	ng.Get("/unread-count", nh.UnreadCount)
	ng.Patch("/read", nh.MarkRead)

	// Messages, visits, orders
	mh := &msghandler.Handlers{Service: &msgsvc.Service{DB: db, Notifier: notifier}}
	api.Post("/messages", auth, mh.Send)
	api.Get("/messages", auth, mh.Conversation)

	vh := &visithandler.Handlers{Service: &visitsvc.Service{DB: db, Notifier: notifier}}
	api.Post("/visits", auth, vh.Schedule)
	api.Get("/visits", auth, vh.List)

	oh := &orderhandler.Handlers{Service: &ordersvc.Service{DB: db, Notifier: notifier}}
	api.Post("/orders", auth, oh.Place)
	api.Get("/orders", auth, oh.List)

	// Favourites
	fh := &favhandler.Handlers{Service: &favsvc.Service{DB: db}}
	fg := api.Group("/favorites", auth)
	fg.Post("/brands", fh.AddBrand)
	fg.Get("/brands", fh.ListBrands)
	fg.Delete("/brands/:id", fh.RemoveBrand)
	fg.Post("/filters", fh.SaveFilter)
	fg.Get("/filters", fh.ListFilters)
	fg.Delete("/filters/:id", fh.RemoveFilter)

	// Backoffice
	adh := &adminhandler.Handlers{Service: &adminsvc.Service{
		DB:       db,
		Lockout:  lockout,
		Notifier: notifier,
		Mailer:   mailer,
		Store:    store,
	}}
	ag := api.Group("/admin", auth, middleware.AuthorizePermission(constants.ViewBackoffice))
	ag.Get("/verify", adh.Verify)
	ag.Get("/users", adh.ListUsers)
	ag.Post("/users", middleware.AuthorizePermission(constants.ManageUsers), adh.CreateAdmin)
	ag.Post("/users/:id/block", middleware.AuthorizePermission(constants.ManageUsers), adh.BlockUser)
	ag.Post("/users/:id/unblock", middleware.AuthorizePermission(constants.ManageUsers), adh.UnblockUser)
	ag.Post("/users/:id/approve-seller", middleware.AuthorizePermission(constants.ManageUsers), adh.ApproveSeller)
	ag.Post("/users/:id/promote", middleware.AuthorizePermission(constants.ManageUsers), adh.Promote)
	ag.Get("/listings", adh.ListListings)
	ag.Post("/listings/:id/moderate", middleware.AuthorizePermission(constants.ModerateListings), adh.ModerateListing)
	ag.Get("/stats", adh.Stats)
	ag.Get("/actions", adh.Actions)

	return app, db, rdb, nil
}
