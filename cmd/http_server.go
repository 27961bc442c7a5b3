package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/auth"
	"github.com/evomaxseipio/evotrack-backend/internal/core/events"
	"github.com/evomaxseipio/evotrack-backend/internal/department"
	departmentpg "github.com/evomaxseipio/evotrack-backend/internal/department/postgres"
	"github.com/evomaxseipio/evotrack-backend/internal/email"
	"github.com/evomaxseipio/evotrack-backend/internal/organization"
	organizationpg "github.com/evomaxseipio/evotrack-backend/internal/organization/postgres"
	"github.com/evomaxseipio/evotrack-backend/internal/team"
	teampg "github.com/evomaxseipio/evotrack-backend/internal/team/postgres"
	"github.com/evomaxseipio/evotrack-backend/internal/transport"
	"github.com/evomaxseipio/evotrack-backend/internal/transport/rest"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
	userpg "github.com/evomaxseipio/evotrack-backend/internal/user/postgres"
	"github.com/evomaxseipio/evotrack-backend/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Config.Server.Origins(), deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Logging.Env)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// gorm shares the sqlx connection pool so health checks and repos
	// see the same database state.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	eventBus := events.NewEventBus(lg)
	email.NewService(config.Email, config.Security, lg).RegisterHandlers(eventBus)

	userRepo := userpg.NewUserRepository(gormDB)
	orgRepo := organizationpg.NewOrganizationRepository(gormDB)
	membershipRepo := organizationpg.NewMembershipRepository(gormDB)
	invitationRepo := organizationpg.NewInvitationRepository(gormDB)
	departmentRepo := departmentpg.NewDepartmentRepository(gormDB)
	teamRepo := teampg.NewTeamRepository(gormDB)

	membershipService := organization.NewMembershipService(membershipRepo)
	tokenGen := auth.NewJWTTokenGenerator(config.Security)

	authService := auth.NewService(userRepo, tokenGen, eventBus, config.Security, lg)
	userService := user.NewService(userRepo, membershipService, eventBus, config.Security, config.Upload, lg)
	orgService := organization.NewService(orgRepo, membershipService, userRepo, userRepo, eventBus, lg)
	invitationService := organization.NewInvitationService(invitationRepo, orgRepo, membershipService, userRepo, eventBus, config.Security.InvitationExpiry, lg)
	departmentService := department.NewService(departmentRepo, membershipService, userRepo, lg)
	teamService := team.NewService(teamRepo, membershipService, departmentService, lg)

	baseHandler := transport.NewBaseHandler(lg)
	handlers := rest.Handlers{
		Auth:         auth.NewHandler(baseHandler, authService),
		User:         user.NewHandler(baseHandler, userService),
		Organization: organization.NewHandler(baseHandler, orgService),
		Invitation:   organization.NewInvitationHandler(baseHandler, invitationService),
		Department:   department.NewHandler(baseHandler, departmentService),
		Team:         team.NewHandler(baseHandler, teamService),
	}

	return &Dependencies{
		Config:   config,
		DB:       db,
		Router:   chi.NewRouter(),
		Handlers: handlers,
		Logger:   lg,
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
