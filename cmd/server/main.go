package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/org/endura/internal/api"
	"github.com/org/endura/internal/auth"
	"github.com/org/endura/internal/docs"
	"github.com/org/endura/internal/mailer"
	"github.com/org/endura/internal/storage"
	"github.com/org/endura/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type smtpConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type docsConfig struct {
	Backend   string `yaml:"backend"` // "local" or "s3"
	Dir       string `yaml:"dir"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type adminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
}

type config struct {
	ListenAddr     string      `yaml:"listen_addr"`
	TLSCertFile    string      `yaml:"tls_cert"`
	TLSKeyFile     string      `yaml:"tls_key"`
	DBUrl          string      `yaml:"db_url"`
	MigrationsDir  string      `yaml:"migrations_dir"`
	LogLevel       string      `yaml:"log_level"`
	JWTSecret      string      `yaml:"jwt_secret"`
	AccessTTL      string      `yaml:"access_ttl"`
	RefreshTTL     string      `yaml:"refresh_ttl"`
	AllowedOrigins []string    `yaml:"allowed_origins"`
	UploadURL      string      `yaml:"upload_url"`
	SMTP           smtpConfig  `yaml:"smtp"`
	Docs           docsConfig  `yaml:"docs"`
	Admin          adminConfig `yaml:"admin"`
}

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	cfgFile := "config.yaml"
	if v := os.Getenv("ENDURA_CONFIG"); v != "" {
		cfgFile = v
	}

	cfg := config{
		ListenAddr:    ":8400",
		MigrationsDir: "migrations",
		LogLevel:      "info",
		AccessTTL:     "15m",
		RefreshTTL:    "720h",
		Docs:          docsConfig{Backend: "local", Dir: "verification_docs"},
	}

	if data, err := os.ReadFile(cfgFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to parse config")
		}
	} else {
		log.Warn().Str("file", cfgFile).Msg("config file not found, using defaults")
	}

	// Env overrides
	if v := os.Getenv("ENDURA_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DBUrl = v
	}
	if v := os.Getenv("ENDURA_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.DBUrl == "" {
		log.Fatal().Msg("db_url must be configured (or DATABASE_URL env var)")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("jwt_secret must be configured (or ENDURA_JWT_SECRET env var)")
	}

	accessTTL, err := time.ParseDuration(cfg.AccessTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid access_ttl")
	}
	refreshTTL, err := time.ParseDuration(cfg.RefreshTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid refresh_ttl")
	}

	ctx := context.Background()

	// Connect to database
	store, err := storage.NewPostgresStore(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	// Run migrations
	if err := storage.RunMigrations(cfg.DBUrl, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("migrations applied")

	// Seed the bootstrap admin account if configured and absent
	if cfg.Admin.Email != "" {
		if err := seedAdmin(ctx, store, cfg.Admin); err != nil {
			log.Fatal().Err(err).Msg("failed to seed admin account")
		}
	}

	// Document storage
	var documents docs.Store
	switch cfg.Docs.Backend {
	case "s3":
		documents, err = docs.NewS3Store(ctx, docs.S3Config{
			Region:    cfg.Docs.Region,
			Endpoint:  cfg.Docs.Endpoint,
			Bucket:    cfg.Docs.Bucket,
			AccessKey: cfg.Docs.AccessKey,
			SecretKey: cfg.Docs.SecretKey,
		})
	default:
		documents, err = docs.NewLocalStore(cfg.Docs.Dir)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init document storage")
	}

	mail := mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username,
		cfg.SMTP.Password, cfg.SMTP.From, cfg.UploadURL)
	sessions := auth.NewSessions(store, []byte(cfg.JWTSecret), accessTTL, refreshTTL)

	srv := api.NewServer(store, sessions, mail, documents, api.Config{
		ListenAddr:     cfg.ListenAddr,
		TLSCertFile:    cfg.TLSCertFile,
		TLSKeyFile:     cfg.TLSKeyFile,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("server started")
	<-quit

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

// seedAdmin creates the configured admin account once. An existing row with
// the same email is left untouched.
func seedAdmin(ctx context.Context, store storage.Store, admin adminConfig) error {
	if _, err := store.GetAccountByEmail(ctx, admin.Email); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	account := &models.Account{
		Email:        admin.Email,
		FullName:     admin.FullName,
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.CreateAccount(ctx, account); err != nil {
		return err
	}
	log.Info().Str("email", admin.Email).Msg("admin account created")
	return nil
}
