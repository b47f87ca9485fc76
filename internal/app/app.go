package app

import (
	"context"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/controller"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/pkg/configwatcher"
	"learning_platform_backend/pkg/database"
	"learning_platform_backend/pkg/logger"
	"learning_platform_backend/pkg/monitoring"
	"learning_platform_backend/pkg/security"
	"learning_platform_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	stop            context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	student   *repository.StudentRepository
	admin     *repository.AdminRepository
	subject   *repository.SubjectRepository
	topic     *repository.TopicRepository
	banner    *repository.BannerRepository
	content   *repository.TopicContentRepository
	comment   *repository.CommentRepository
	reaction  *repository.ReactionRepository
	community *repository.CommunityRepository
	chat      *repository.ChatRepository
	exam      *repository.ExamRepository
	record    *repository.RecordExamRepository
	quiz      *repository.QuizRepository
	library   *repository.LibraryRepository
	progress  *repository.ProgressRepository
	wallet    *repository.WalletRepository
	payment   *repository.PaymentRepository
	dashboard *repository.DashboardRepository
}

type services struct {
	storage   *service.StorageService
	auth      *service.AuthService
	student   *service.StudentService
	admin     *service.AdminService
	resolver  *service.ParticipantResolver
	catalog   *service.CatalogService
	library   *service.LibraryService
	content   *service.ContentService
	community *service.CommunityService
	chatHub   *service.ChatHub
	chat      *service.ChatService
	exam      *service.ExamService
	quiz      *service.QuizService
	progress  *service.ProgressService
	wallet    *service.WalletService
	payment   *service.PaymentService
	dashboard *service.DashboardService
}

type controllers struct {
	auth      *controller.AuthController
	user      *controller.UserController
	catalog   *controller.CatalogController
	library   *controller.LibraryController
	content   *controller.ContentController
	community *controller.CommunityController
	chat      *controller.ChatController
	exam      *controller.ExamController
	quiz      *controller.QuizController
	progress  *controller.ProgressController
	wallet    *controller.WalletController
	payment   *controller.PaymentController
	dashboard *controller.DashboardController
	health    *controller.HealthController
}

// RegisterConfigCallback runs callback with every reloaded config.
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		student:   repository.NewStudentRepository(db),
		admin:     repository.NewAdminRepository(db),
		subject:   repository.NewSubjectRepository(db),
		topic:     repository.NewTopicRepository(db),
		banner:    repository.NewBannerRepository(db),
		content:   repository.NewTopicContentRepository(db),
		comment:   repository.NewCommentRepository(db),
		reaction:  repository.NewReactionRepository(db),
		community: repository.NewCommunityRepository(db),
		chat:      repository.NewChatRepository(db),
		exam:      repository.NewExamRepository(db),
		record:    repository.NewRecordExamRepository(db),
		quiz:      repository.NewQuizRepository(db),
		library:   repository.NewLibraryRepository(db),
		progress:  repository.NewProgressRepository(db),
		wallet:    repository.NewWalletRepository(db),
		payment:   repository.NewPaymentRepository(db),
		dashboard: repository.NewDashboardRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	codes := service.NewCodeStore(rdb)
	s.auth = service.NewAuthService(
		repos.student,
		repos.admin,
		codes,
		service.NewMailer(cfg.Email),
		service.NewPhoneVerifier(cfg.SMS, codes),
		cfg,
	)
	s.student = service.NewStudentService(repos.student, s.storage)
	s.admin = service.NewAdminService(repos.admin, s.storage)
	s.resolver = service.NewParticipantResolver(repos.student, repos.admin)

	s.catalog = service.NewCatalogService(repos.subject, repos.topic, repos.banner, s.storage)
	s.library = service.NewLibraryService(repos.library, s.storage)
	s.content = service.NewContentService(repos.content, repos.topic, repos.comment, repos.reaction, s.storage)
	s.community = service.NewCommunityService(repos.community, repos.subject, s.resolver, s.storage)

	s.chatHub = service.NewChatHub(rdb, repos.chat)
	go s.chatHub.Run()
	s.chat = service.NewChatService(repos.chat, repos.content, s.resolver, s.storage, s.chatHub)

	s.exam = service.NewExamService(repos.exam, repos.record, repos.subject, repos.topic, repos.student)
	s.quiz = service.NewQuizService(repos.quiz, repos.content)
	s.progress = service.NewProgressService(repos.progress, cfg)

	s.wallet = service.NewWalletService(db, repos.wallet, repos.student, rdb, cfg)
	s.payment = service.NewPaymentService(repos.payment, repos.student, s.wallet, service.NewPaymentGateway(cfg))
	s.dashboard = service.NewDashboardService(repos.dashboard, repos.payment, s.wallet, rdb)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		user:      controller.NewUserController(s.student, s.admin),
		catalog:   controller.NewCatalogController(s.catalog),
		library:   controller.NewLibraryController(s.library),
		content:   controller.NewContentController(s.content),
		community: controller.NewCommunityController(s.community),
		chat:      controller.NewChatController(s.chat, s.chatHub),
		exam:      controller.NewExamController(s.exam),
		quiz:      controller.NewQuizController(s.quiz),
		progress:  controller.NewProgressController(s.progress),
		wallet:    controller.NewWalletController(s.wallet),
		payment:   controller.NewPaymentController(s.payment),
		dashboard: controller.NewDashboardController(s.dashboard),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests, window := cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks runs the periodic sweeps until ctx is cancelled.
func (a *App) startBackgroundTasks(ctx context.Context, s *services) {
	go every(ctx, time.Minute, func() { expireWithdrawals(ctx, s.wallet, s.dashboard) })

	go every(ctx, time.Hour, func() {
		n, err := s.progress.CheckAndResetStaleProgress()
		if err != nil {
			logger.Log.Error("stale progress sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Log.Info("reset stale topic progress", zap.Int64("count", n))
		}
	})

	go func() {
		err := configwatcher.WatchConfig(ctx, configDir, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("config watcher not running", zap.Error(err))
		}
	}()
}

type withdrawalSweeper interface {
	CheckExpiredWithdrawals() (int, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// expireWithdrawals drops the cached dashboard whenever anything expired,
// even if part of the sweep failed.
func expireWithdrawals(ctx context.Context, w withdrawalSweeper, cache cacheInvalidator) {
	n, err := w.CheckExpiredWithdrawals()
	if err != nil {
		logger.Log.Error("withdrawal expiry sweep failed", zap.Int("expired", n), zap.Error(err))
	} else if n > 0 {
		logger.Log.Info("expired pending withdrawals", zap.Int("count", n))
	}
	if n > 0 {
		cache.Invalidate(ctx)
	}
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	if err := services.auth.EnsureMainAdmin(cfg.Admin.BootstrapEmail, cfg.Admin.BootstrapPassword); err != nil {
		logger.Log.Error("Failed to create the main admin", zap.Error(err))
	}

	app.RegisterConfigCallback(services.wallet.UpdateConfig)
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.Log.Info("wallet settings reloaded",
			zap.Bool("refundExpiredWithdrawals", newCfg.Wallet.RefundExpiredWithdrawals),
			zap.String("defaultCurrency", newCfg.Wallet.DefaultCurrency),
		)
	})

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("learning-platform", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.stop = cancel
	app.startBackgroundTasks(ctx, services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	if a.stop != nil {
		a.stop()
	}
	// drops websocket clients and their presence keys
	if a.services != nil && a.services.chatHub != nil {
		a.services.chatHub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
}
