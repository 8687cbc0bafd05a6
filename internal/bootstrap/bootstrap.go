package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/tuitiontrack/internal/app/controllers"
	appMigrations "github.com/yigit/tuitiontrack/internal/app/migrations"
	appRepos "github.com/yigit/tuitiontrack/internal/app/repositories"
	appRoutes "github.com/yigit/tuitiontrack/internal/app/routes"
	appServices "github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/config"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/domain"
	appMiddleware "github.com/yigit/tuitiontrack/internal/middleware"
	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
	pkgAuth "github.com/yigit/tuitiontrack/internal/pkg/auth"
	"github.com/yigit/tuitiontrack/internal/pkg/filestorage"
	"github.com/yigit/tuitiontrack/internal/pkg/helpbot"
	"github.com/yigit/tuitiontrack/internal/pkg/helpers"
	"github.com/yigit/tuitiontrack/internal/pkg/logger"
	"github.com/yigit/tuitiontrack/internal/pkg/metrics"
	"github.com/yigit/tuitiontrack/internal/pkg/notify"
	"github.com/yigit/tuitiontrack/internal/pkg/render"
	"github.com/yigit/tuitiontrack/internal/pkg/scheduler"
	"github.com/yigit/tuitiontrack/internal/pkg/websocket"
	"github.com/yigit/tuitiontrack/internal/seed"
)

// DefaultConfigPath is read relative to the working directory.
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos       *appRepos.Repositories
	Clock       *domain.Clock
	Metrics     *metrics.Metrics
	FileStorage filestorage.FileStorage
	Hub         *websocket.Hub
	Dispatcher  notify.Dispatcher
	Redis       *redis.Client
	Scheduler   *scheduler.Scheduler

	AuthService        *appServices.AuthService
	TutorService       *appServices.TutorService
	BatchService       *appServices.BatchService
	StudentService     *appServices.StudentService
	AttendanceService  *appServices.AttendanceService
	HomeworkService    *appServices.HomeworkService
	DashboardService   *appServices.DashboardService
	ReportService      *appServices.ReportService
	ExportService      *appServices.ExportService
	PortalService      *appServices.PortalService
	HelpService        *appServices.HelpService
	MaintenanceService *appServices.MaintenanceService

	Controllers appRoutes.Controllers
	Logger      zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	if len(cfg.EnvOverrides) > 0 {
		lgr.Info().Strs("variables", cfg.EnvOverrides).Msg("Configuration overridden from environment")
	}
	return cfg, lgr, nil
}

// ConnectDatabase opens the pool and checks it answers.
func ConnectDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		database.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database, nil
}

// RunMigrations applies the SQL files of the configured directory.
func RunMigrations(ctx context.Context, cfg *config.Config, conn db.DBTX, lgr zerolog.Logger) error {
	migrationsDir := cfg.Database.MigrationsPath
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Msg("Running database migrations...")
	applied, err := appMigrations.NewMigrator(conn).MigrateFromDirectory(ctx, migrationsDir)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")
	return nil
}

// SetupDatabase connects, migrates and, outside production, seeds demo data.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	database, err := ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := RunMigrations(ctx, cfg, database.Pool, lgr); err != nil {
		database.Close()
		return nil, err
	}

	if !isProduction(cfg) {
		repos := appRepos.NewRepositories(database.Pool)
		if err := seed.CreateDemoData(ctx, repos, domain.NewClock(cfg.Location()), lgr); err != nil {
			// Log the error but don't fail the startup
			lgr.Error().Err(err).Msg("Failed to create demo data, proceeding anyway...")
		}
	}
	return database, nil
}

func isProduction(cfg *config.Config) bool {
	return strings.ToLower(cfg.Server.Mode) == "production"
}

// NewFileStorage opens the configured attachment store.
func NewFileStorage(cfg *config.Config) (filestorage.FileStorage, error) {
	if cfg.Storage.Driver == "s3" {
		return filestorage.NewS3Storage(filestorage.S3Config{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
		})
	}
	return filestorage.NewLocalStorage(cfg.Storage.LocalPath)
}

// buildDispatcher fans notifications out to every configured driver.
func buildDispatcher(cfg *config.Config, deps *Dependencies) (notify.Dispatcher, error) {
	var multi notify.Multi
	for _, driver := range cfg.NotificationDrivers() {
		switch driver {
		case "log":
			multi = append(multi, notify.NewLogDispatcher(logger.Component("notify")))
		case "hub":
			multi = append(multi, notify.NewHubDispatcher(deps.Hub))
		case "redis":
			client, err := notify.NewRedisClient(notify.RedisConfig{
				Addr:     cfg.Notifications.RedisAddr,
				DB:       cfg.Notifications.RedisDB,
				QueueKey: cfg.Notifications.QueueKey,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to connect notification queue: %w", err)
			}
			deps.Redis = client
			multi = append(multi, notify.NewRedisDispatcher(client, cfg.Notifications.QueueKey))
		}
	}
	return multi, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	var err error

	deps.Repos = appRepos.NewRepositories(database.Pool)
	deps.Clock = domain.NewClock(cfg.Location())
	deps.Metrics = metrics.New()
	deps.Hub = websocket.NewHub(logger.Component("websocket"))

	deps.FileStorage, err = NewFileStorage(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.Dispatcher, err = buildDispatcher(cfg, deps)
	if err != nil {
		return nil, err
	}

	bot, err := helpbot.Load(cfg.HelpBot.QAPath, cfg.HelpBot.Threshold)
	if err != nil {
		// The widget still answers with the fallback reply
		lgr.Warn().Err(err).Str("path", cfg.HelpBot.QAPath).Msg("Failed to load help answers")
	}

	retry := db.RetryPolicy{
		Attempts:  cfg.Database.RetryAttempts,
		BaseDelay: helpers.ParseDuration(cfg.Database.RetryBaseDelay, db.DefaultRetryPolicy.BaseDelay),
	}
	uploadRules := filestorage.UploadRules{
		MaxBytes:          cfg.MaxUploadBytes(),
		AllowedExtensions: cfg.Storage.AllowedExtensions,
	}
	otp := pkgAuth.NewOTPService(pkgAuth.OTPConfig{
		SecretKey: cfg.Auth.JWTSecret,
		TTL:       helpers.ParseDuration(cfg.Auth.OTPTTL, 5*time.Minute),
		Issuer:    cfg.Auth.Issuer,
	})

	r := deps.Repos
	pageSize := cfg.App.PageSize

	// Initialize services
	deps.AuthService = appServices.NewAuthService(r.TutorRepository, r.StudentRepository, otp, cfg.Auth.OTPBypass, retry, deps.Metrics, logger.Component("auth"))
	deps.TutorService = appServices.NewTutorService(r.TutorRepository, retry, lgr)
	deps.BatchService = appServices.NewBatchService(r.BatchRepository, r.StudentRepository, r.HomeworkRepository, deps.FileStorage, retry, pageSize, lgr)
	deps.StudentService = appServices.NewStudentService(r.StudentRepository, r.BatchRepository, r.HomeworkRepository, r.AuditRepository, deps.FileStorage, retry, pageSize, lgr)
	deps.AttendanceService = appServices.NewAttendanceService(
		r.StudentRepository,
		r.BatchRepository,
		r.AttendanceRepository,
		deps.Dispatcher,
		retry,
		deps.Clock,
		deps.Metrics,
		logger.Component("attendance"),
	)
	deps.HomeworkService = appServices.NewHomeworkService(
		r.HomeworkRepository,
		r.BatchRepository,
		r.StudentRepository,
		deps.FileStorage,
		uploadRules,
		retry,
		deps.Clock,
		pageSize,
		lgr,
	)
	deps.DashboardService = appServices.NewDashboardService(r.TutorRepository, r.BatchRepository, r.StudentRepository, r.AttendanceRepository, r.HomeworkRepository, deps.Clock, lgr)
	deps.ReportService = appServices.NewReportService(r.TutorRepository, r.BatchRepository, r.StudentRepository, r.AttendanceRepository, deps.Clock, lgr)
	deps.ExportService = appServices.NewExportService(r.BatchRepository, r.StudentRepository, r.AttendanceRepository, deps.Clock, lgr)
	deps.PortalService = appServices.NewPortalService(r.StudentRepository, r.BatchRepository, r.AttendanceRepository, r.HomeworkRepository, deps.Clock, lgr)
	deps.HelpService = appServices.NewHelpService(bot, logger.Component("helpbot"))
	deps.MaintenanceService = appServices.NewMaintenanceService(
		r.HomeworkRepository,
		r.AttendanceRepository,
		deps.FileStorage,
		deps.Clock,
		cfg.Maintenance.AttendanceRetentionDays,
		deps.Metrics,
		logger.Component("maintenance"),
	)

	deps.Scheduler = scheduler.New(cfg.Location(), 5*time.Minute, logger.Component("scheduler"))
	if spec := strings.TrimSpace(cfg.Maintenance.Schedule); spec != "" {
		err := deps.Scheduler.Add("maintenance", spec, func(ctx context.Context) error {
			_, err := deps.MaintenanceService.Run(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("invalid maintenance schedule: %w", err)
		}
	}

	deps.Controllers = appRoutes.Controllers{
		Auth:       appControllers.NewAuthController(deps.AuthService, deps.TutorService, logger.Component("auth")),
		Dashboard:  appControllers.NewDashboardController(deps.DashboardService),
		Batch:      appControllers.NewBatchController(deps.BatchService),
		Student:    appControllers.NewStudentController(deps.StudentService, deps.BatchService, cfg.Server.BaseURL, lgr),
		Attendance: appControllers.NewAttendanceController(deps.AttendanceService, logger.Component("attendance")),
		Homework:   appControllers.NewHomeworkController(deps.HomeworkService, deps.BatchService, deps.StudentService, deps.MaintenanceService, lgr),
		Report:     appControllers.NewReportController(deps.ReportService),
		Export:     appControllers.NewExportController(deps.ExportService, lgr),
		Portal:     appControllers.NewPortalController(deps.PortalService, deps.ReportService, deps.HomeworkService, deps.MaintenanceService, deps.Clock, lgr),
		Help:       appControllers.NewHelpController(deps.HelpService),
		Upload:     appControllers.NewUploadController(deps.HomeworkService, lgr),
		Health:     appControllers.NewHealthController(database, lgr),
		Socket:     websocket.NewHandler(deps.Hub, appControllers.NotificationRecipient, logger.Component("websocket")),
	}

	return deps, nil
}

// Start launches the background workers. They stop when ctx ends.
func (d *Dependencies) Start(ctx context.Context) {
	go d.Hub.Run(ctx)
	d.Scheduler.Start()
}

// Close stops the scheduler and releases the queue connection.
func (d *Dependencies) Close(ctx context.Context) {
	d.Scheduler.Stop(ctx)
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if isProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.SetupValidation(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes()
	router.SetFuncMap(render.FuncMap(cfg.Location()))
	router.LoadHTMLGlob(cfg.Server.TemplatesGlob)
	router.Static("/static", cfg.Server.StaticPath)

	router.Use(
		appMiddleware.RequestID(),
		appMiddleware.RequestLogger(logger.Component("http")),
		appMiddleware.Recovery(lgr),
	)
	if cfg.Metrics.Enabled {
		router.Use(deps.Metrics.Middleware())
		router.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	router.Use(appMiddleware.Sessions(appMiddleware.SessionConfig{
		Name:   cfg.Session.Name,
		Secret: cfg.Session.Secret,
		Secure: cfg.Session.Secure,
		MaxAge: helpers.ParseDuration(cfg.Session.MaxAge, 24*time.Hour),
	}))
	if cfg.CSRF.Enabled {
		router.Use(appMiddleware.CSRF(appMiddleware.CSRFConfig{
			Key:    []byte(cfg.CSRF.Key),
			Secure: cfg.Session.Secure,
		}))
	}
	router.Use(appMiddleware.LoadIdentity())

	appRoutes.SetupRouter(router, deps.Controllers)

	router.NoRoute(func(c *gin.Context) {
		appMiddleware.HandleError(c, apperrors.NewResourceNotFoundError("Page not found"))
	})

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router, nil
}
