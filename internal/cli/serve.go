package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studenthub/internal/fallback"
	"studenthub/internal/handler"
	"studenthub/internal/middleware"
	mongoclient "studenthub/internal/mongo"
	"studenthub/internal/repository"
	"studenthub/internal/service"
	"studenthub/internal/session"
)

func newServeCmd(a *app) *cobra.Command {
	var secureCookie bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, secureCookie)
		},
	}
	cmd.Flags().BoolVar(&secureCookie, "secure-cookie", false, "mark the session cookie Secure (behind TLS)")
	return cmd
}

func (a *app) retryPolicy() service.RetryPolicy {
	return service.RetryPolicy{
		MaxAttempts: a.cfg.Listings.MaxAttempts,
		Timeout:     a.cfg.Listings.QueryTimeout,
		Backoff:     service.LinearBackoff(a.cfg.Listings.Backoff),
	}
}

func (a *app) serve(ctx context.Context, secureCookie bool) error {
	cfg, logger := a.cfg, a.logger

	db, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		return err
	}

	// GridFS is optional; without it upload and download routes answer 503.
	var store service.ObjectStore
	if cfg.Mongo.URI != "" {
		client, err := mongoclient.NewMongoClient(ctx, cfg.Mongo.URI, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("mongo disconnect", zap.Error(err))
			}
		}()
		store = repository.NewPhotoRepository(client, cfg.Mongo.Database, cfg.Mongo.Buckets.Names())
	} else {
		logger.Warn("MONGO_URI not set, image storage disabled")
	}

	fb, err := fallback.Load()
	if err != nil {
		return err
	}

	listingRepo := repository.NewListingRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	tokens := middleware.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	listings := service.NewListingService(listingRepo, fb, a.retryPolicy(), logger)
	var offline atomic.Bool
	listings.OnStatus(func(st service.ConnectionStatus) {
		now := st.Offline()
		if offline.Swap(now) == now {
			return
		}
		if now {
			logger.Warn("serving fallback listings", zap.String("lastError", st.LastError))
		} else {
			logger.Info("serving listings from the store again")
		}
	})

	sessions := session.NewStore(listings, cfg.Listings.DefaultLocation, cfg.Session.TTL, logger)
	defer sessions.Close()
	go sessions.Run(ctx, cfg.Session.SweepInterval)

	router := handler.NewRouter(handler.Deps{
		Logger:   logger,
		Tokens:   tokens,
		Listings: listings,
		Detail: service.NewDetailService(
			listingRepo,
			repository.NewReviewRepository(db),
			repository.NewBookingRepository(db),
			fb,
			logger,
		),
		Auth:     service.NewAuthService(profileRepo, tokens, logger),
		Profiles: service.NewProfileService(profileRepo, repository.NewCardRepository(db)),
		Media: service.NewMediaService(
			store,
			listingRepo,
			profileRepo,
			cfg.Mongo.Buckets.ListingImages,
			cfg.Mongo.Buckets.Avatars,
			logger,
		),
		Sessions:       sessions,
		ListingRepo:    listingRepo,
		StorageEnabled: store != nil,
		SecureCookie:   secureCookie,
		CookieMaxAge:   int(cfg.Session.TTL.Seconds()),
	})

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("studenthub listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
