// @title           RMA API
// @version         1.0
// @description     Gestión de devoluciones (RMA): ciclo de vida, catálogo por país y recordatorios de pago.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	_ "github.com/jhoicas/rma-api/docs"
	"github.com/jhoicas/rma-api/internal/application/auth"
	"github.com/jhoicas/rma-api/internal/application/notification"
	"github.com/jhoicas/rma-api/internal/application/reminder"
	"github.com/jhoicas/rma-api/internal/application/rma"
	"github.com/jhoicas/rma-api/internal/application/usecase"
	"github.com/jhoicas/rma-api/internal/domain/repository"
	"github.com/jhoicas/rma-api/internal/infrastructure/mail"
	"github.com/jhoicas/rma-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/rma-api/internal/infrastructure/pdf"
	"github.com/jhoicas/rma-api/internal/infrastructure/postgres"
	"github.com/jhoicas/rma-api/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/rma-api/internal/interfaces/http"
	"github.com/jhoicas/rma-api/pkg/config"
	"github.com/jhoicas/rma-api/pkg/logger"
)

// stores repositorios del driver elegido y su cierre.
type stores struct {
	users     repository.UserRepository
	countries repository.CountryRepository
	brands    repository.BrandRepository
	products  repository.ProductRepository
	rmas      repository.RMARepository
	tx        rma.TxRunner
	close     func()
}

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
		Str("db", cfg.DB.Driver).
		Str("storage", cfg.Storage.Driver).
		Str("mail", cfg.Mail.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("persistencia")
	}
	defer st.close()

	files, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento de cotizaciones")
	}

	gateway, err := openMail(cfg.Mail, log)
	if err != nil {
		log.Fatal().Err(err).Msg("gateway de correo")
	}
	// Los avisos de transición salen por la cola; el scheduler usa el gateway
	// directo para confirmar cada envío antes de marcarlo.
	dispatcher := notification.NewDispatcher(gateway, log.Zerolog(), notification.DispatcherConfig{})

	authUC := auth.NewAuthUseCase(st.users, st.countries, dispatcher, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, log.Zerolog())
	userUC := usecase.NewUserUseCase(st.users, st.countries, log.Zerolog())
	catalogUC := usecase.NewCatalogUseCase(st.countries, log.Zerolog())
	productUC := usecase.NewProductUseCase(st.brands, st.products, log.Zerolog())
	lifecycleUC := rma.NewLifecycleUseCase(rma.Deps{
		Tx:              st.tx,
		RMAs:            st.rmas,
		Users:           st.users,
		Countries:       st.countries,
		Products:        st.products,
		Storage:         files,
		Notifier:        dispatcher,
		Guide:           infrapdf.NewGuideGenerator(cfg.App.CompanyName, cfg.App.WarehouseAddress),
		Log:             log.Zerolog(),
		QuotationFolder: cfg.Storage.QuotationFolder,
	})

	scheduler := reminder.NewScheduler(reminder.Deps{
		Tx:      st.tx,
		RMAs:    st.rmas,
		Gateway: gateway,
		Log:     log.Zerolog(),
	}, reminder.Config{
		Window:    cfg.Scheduler.Window,
		RunAt:     cfg.Scheduler.RunAt,
		Interval:  cfg.Scheduler.Interval,
		Timezone:  cfg.Scheduler.Timezone,
		SendDelay: cfg.Scheduler.SendDelay,
	})
	if err := scheduler.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuración del scheduler")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    cfg.HTTP.BodyLimitMB << 20,
		ErrorHandler: httpRouter.ErrorHandler,
	})
	app.Use(recover.New())
	if cfg.App.Env == "development" {
		app.Use(fiberlogger.New(fiberlogger.Config{Output: log.Writer()}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	if cfg.HTTP.RateLimit > 0 {
		app.Use("/api", limiter.New(limiter.Config{
			Max:        cfg.HTTP.RateLimit,
			Expiration: time.Minute,
		}))
	}

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "RMA API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	if cfg.Storage.Driver == "local" {
		app.Static("/uploads", cfg.Storage.LocalPath)
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		UserUC:      userUC,
		CatalogUC:   catalogUC,
		ProductUC:   productUC,
		LifecycleUC: lifecycleUC,
		Scheduler:   scheduler,
		JWTSecret:   cfg.JWT.Secret,
	})

	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("scheduler de recordatorios")
		}
	} else {
		log.Warn().Msg("scheduler de recordatorios deshabilitado (SCHEDULER_ENABLED=false)")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			return fmt.Errorf("servidor HTTP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
		defer cancel()

		var errs []error
		if err := scheduler.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("servidor HTTP: %w", err))
		}
		if err := dispatcher.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("cola de avisos: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	log.Info().Msg("aplicación detenida")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.DB.Driver == "memory" {
		log.Warn().Msg("DB_DRIVER=memory: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &stores{
			users:     s.Users(),
			countries: s.Countries(),
			brands:    s.Brands(),
			products:  s.Products(),
			rmas:      s.RMAs(),
			tx:        s,
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		log.Info().Msg("migraciones aplicadas")
	}
	return &stores{
		users:     postgres.NewUserRepository(pool),
		countries: postgres.NewCountryRepository(pool),
		brands:    postgres.NewBrandRepository(pool),
		products:  postgres.NewProductRepository(pool),
		rmas:      postgres.NewRMARepository(pool),
		tx:        postgres.NewTxRunner(pool),
		close:     pool.Close,
	}, nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (rma.BlobStorage, error) {
	if cfg.Driver == "gcs" {
		gcs, err := storage.NewGCSStorage(ctx, storage.GCSConfig{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.GCSCredentialsFile,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return gcs, nil
	}
	local, err := storage.NewLocalStorage(cfg.LocalPath, strings.TrimRight(cfg.PublicBaseURL, "/"))
	if err != nil {
		return nil, err
	}
	return local, nil
}

func openMail(cfg config.MailConfig, log *logger.Logger) (notification.Gateway, error) {
	renderer, err := mail.NewRenderer(mail.Content{
		FrontendURL:  cfg.FrontendURL,
		SupportEmail: cfg.SupportEmail,
		SupportPhone: cfg.SupportPhone,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "smtp" {
		gw, err := mail.NewSMTPGateway(mail.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
			FromName: cfg.FromName,
		}, renderer, log.Zerolog())
		if err != nil {
			return nil, err
		}
		return gw, nil
	}
	return mail.NewLogGateway(renderer, log.Zerolog()), nil
}
