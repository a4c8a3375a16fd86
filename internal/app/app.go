// Package app assembles the backend from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/coimbatore-discount/internal/config"
	"github.com/example/coimbatore-discount/internal/database"
	"github.com/example/coimbatore-discount/internal/events"
	"github.com/example/coimbatore-discount/internal/otp"
	"github.com/example/coimbatore-discount/internal/repository"
	"github.com/example/coimbatore-discount/internal/repository/memory"
	"github.com/example/coimbatore-discount/internal/routes"
	"github.com/example/coimbatore-discount/internal/services"
	"github.com/example/coimbatore-discount/internal/storage"
	"github.com/example/coimbatore-discount/internal/utils"
)

// MemoryDSN selects the in-process stores instead of postgres.
const MemoryDSN = "memory://"

// App holds the constructed services and the resources to release on exit.
type App struct {
	Deps    routes.Deps
	closers []func() error
}

type stores struct {
	accounts   services.AccountStore
	offers     services.OfferStore
	categories services.CategoryStore
	images     services.ImageStore
}

// Build connects every configured backend and wires the services.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{}

	st, err := a.openStores(cfg, log)
	if err != nil {
		return nil, err
	}

	var otpBackend otp.Backend = otp.NewMemoryBackend()
	var resetBackend otp.Backend = otp.NewMemoryBackend()
	if cfg.RedisURL != "" {
		client, err := otp.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		otpBackend = otp.NewRedisBackend(client)
		resetBackend = otp.NewRedisBackend(client).WithPrefix("otp:reset:")
		log.Info("otp challenges stored in redis")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		a.closers = append(a.closers, kp.Close)
		publisher = kp
		log.Info("publishing offer events", "topic", cfg.KafkaTopic)
	}

	var blobs storage.BlobStore
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3BlobStore(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("s3 blob store: %w", err)
		}
		blobs = s3Store
		log.Info("image bytes stored in s3", "bucket", cfg.S3Bucket)
	}

	var notifier services.Notifier = services.NewLogNotifier(log)
	if cfg.MailEnabled() {
		notifier = services.NewMailService(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass, cfg.EmailFromName)
	} else {
		log.Warn("smtp credentials not set, emails are logged instead of sent")
	}

	alerts := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, log)

	a.Deps = routes.Deps{
		Accounts: services.NewAccountService(st.accounts, st.offers, alerts, log),
		Offers:   services.NewOfferService(st.offers, st.accounts, notifier, publisher, alerts, log, cfg.FrontendBaseURL),
		Catalog:  services.NewCatalogService(st.categories),
		Images:   services.NewImageService(st.images, blobs, log, cfg.PublicBaseURL),
		OTP:      otp.NewStore(otpBackend, notifier, log, cfg.OTPTTL),
		ResetOTP: otp.NewStore(resetBackend, notifier, log, cfg.OTPTTL).
			WithMessage("Reset your password", "password reset code"),
		Sessions:         utils.NewSessionIssuer(cfg.JWTSecret, cfg.TokenExpires),
		ExposeOTP:        cfg.OTPExposeCode,
		OTPSendPerMinute: cfg.OTPSendPerMin,
	}
	return a, nil
}

func (a *App) openStores(cfg *config.Config, log *slog.Logger) (stores, error) {
	if strings.EqualFold(cfg.DatabaseURL, MemoryDSN) {
		log.Warn("using in-memory stores, data is lost on exit")
		mem := memory.New()
		return stores{
			accounts:   mem.Accounts(),
			offers:     mem.Offers(),
			categories: mem.Categories(),
			images:     mem.Images(),
		}, nil
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return stores{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return stores{}, err
	}
	a.closers = append(a.closers, sqlDB.Close)

	return stores{
		accounts:   repository.NewAccountStore(db),
		offers:     repository.NewOfferStore(db),
		categories: repository.NewCategoryStore(db),
		images:     repository.NewImageStore(db),
	}, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
