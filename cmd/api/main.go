package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/facturador-api/internal/application/billing"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/infrastructure/cache"
	infradian "github.com/jhoicas/facturador-api/internal/infrastructure/dian"
	"github.com/jhoicas/facturador-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/facturador-api/internal/infrastructure/pdf"
	"github.com/jhoicas/facturador-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/facturador-api/internal/interfaces/http"
	"github.com/jhoicas/facturador-api/pkg/config"
	"github.com/jhoicas/facturador-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("dian_environment", cfg.DIAN.Environment).
		Bool("dian_configured", cfg.DIAN.IsConfigured()).
		Msg("iniciando aplicación")
	if !cfg.DIAN.IsConfigured() {
		log.Warn().Msg("credenciales DIAN ausentes: los envíos responderán no configurado")
	}

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log.Component("migrate")); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	prom := metrics.NewPrometheus("facturador")

	// Proveedor fiscal: autenticación con caché de token y cliente de envío
	clientCfg := infradian.ClientConfig{
		BaseURL:       cfg.DIAN.BaseURL,
		Timeout:       cfg.DIAN.Timeout(),
		RatePerSecond: cfg.DIAN.RatePerSecond,
		Burst:         cfg.DIAN.Burst,
	}
	tokenCache := infradian.NewTokenCache(infradian.NewAuthClient(clientCfg), prom)
	submissionClient := infradian.NewSubmissionClient(clientCfg)

	invoiceRepo := postgres.NewInvoiceRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	auditRepo := postgres.NewAuditEventRepository(pool)

	manager := billing.NewSubmissionManager(
		billing.SubmissionRepos{
			Invoices:       invoiceRepo,
			Companies:      companyRepo,
			Customers:      customerRepo,
			Ranges:         postgres.NewNumberingRangeRepository(pool),
			Municipalities: postgres.NewMunicipalityRepository(pool),
			Jobs:           postgres.NewSubmissionJobRepository(pool),
			Events:         auditRepo,
		},
		tokenCache,
		submissionClient,
		postgres.NewTxRunner(pool),
		billing.NewAuditRecorder(auditRepo, log.Component("audit")),
		prom,
		billing.SubmissionConfig{
			Credentials: entity.Credentials{
				ClientID:     cfg.DIAN.ClientID,
				ClientSecret: cfg.DIAN.ClientSecret,
				Username:     cfg.DIAN.Username,
				Password:     cfg.DIAN.Password,
				Environment:  cfg.DIAN.Environment,
			},
			Timeout:      cfg.DIAN.Timeout(),
			RetryBackoff: cfg.DIAN.RetryBackoff(),
		},
		log.Zerolog(),
	)

	// PDF: representación gráfica de la factura validada
	invoicePDFUC := billing.NewPDFUseCase(invoiceRepo, companyRepo, customerRepo, infrapdf.NewMarotoPDFGenerator())

	if cfg.Retry.Enabled {
		var locker billing.Locker
		if cfg.Redis.Addr != "" {
			redisLocker, err := cache.NewRedisLocker(ctx, cache.RedisConfig{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("conexión a Redis")
			}
			defer redisLocker.Close()
			locker = redisLocker
		}
		scheduler := billing.NewRetryScheduler(manager, locker, prom, billing.RetrySchedulerConfig{
			Interval:    time.Duration(cfg.Retry.IntervalSeconds) * time.Second,
			StaleAfter:  time.Duration(cfg.Retry.StaleAfterMinutes) * time.Minute,
			MaxAttempts: cfg.Retry.MaxAttempts,
			BatchSize:   cfg.Retry.BatchSize,
		}, log.Zerolog())
		go scheduler.Run(ctx)
		log.Info().Bool("redis_lock", locker != nil).Msg("barrido de reintentos activo")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.DIAN.Timeout() + 30*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Facturador API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Submissions:    manager,
		InvoicePDF:     invoicePDFUC,
		MetricsHandler: prom.Handler(),
		JWTSecret:      cfg.JWT.Secret,
		JWTIssuer:      cfg.JWT.Issuer,
		Log:            log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
