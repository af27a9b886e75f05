package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/lunasphere/account-service/internal/config"
	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/handler"
	"github.com/lunasphere/account-service/internal/repository"
	"github.com/lunasphere/account-service/internal/service"
	"github.com/lunasphere/account-service/internal/utils"
	"github.com/lunasphere/account-service/pkg/mailer"
	"github.com/lunasphere/account-service/pkg/oauth"
	"github.com/lunasphere/account-service/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	repos := repository.NewRepositories(infra.Postgres())

	sealer := utils.NewTokenSealer(cfg.JWT.Secret)
	sessions := service.NewSessionStore(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	var mail mailer.Mailer
	if cfg.SMTP.Enabled() {
		mail = mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username,
			cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.FromName)
	} else {
		mail = mailer.NewLogMailer(infra.Logger())
	}

	ttls := service.TokenTTLs{
		Verification: cfg.Tokens.VerificationTTL.Duration,
		Reset:        cfg.Tokens.ResetTTL.Duration,
		Reactivation: cfg.Tokens.ReactivationTTL.Duration,
	}

	accountService := service.NewAccountService(
		repos.User,
		sessions,
		sealer,
		mail,
		infra.Logger(),
		cfg.Security.BCryptCost,
		ttls,
		cfg.Session.TTL.Duration,
		cfg.App.ClientURL,
	)

	var oauthService service.OAuthService
	if cfg.OAuth.Enabled() {
		provider := oauth.NewGoogle(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret, cfg.OAuth.GoogleRedirectURL)
		oauthService = service.NewOAuthService(
			provider,
			repos.User,
			repos.LinkedIdentity,
			sessions,
			sealer,
			mail,
			infra.Logger(),
			cfg.Tokens.VerificationTTL.Duration,
			cfg.Session.TTL.Duration,
			cfg.App.ClientURL,
		)
	}

	userService := service.NewUserService(repos.User, repos.LinkedIdentity, cfg.Security.BCryptCost)
	tagService := service.NewTagService(repos.Tag)

	cookie := handler.SessionCookie{
		Name:   cfg.Session.CookieName,
		TTL:    cfg.Session.TTL.Duration,
		Secure: cfg.Session.CookieSecure,
	}

	authHandler := handler.NewAuthHandler(accountService, oauthService, sealer, cookie, infra.Logger())
	userHandler := handler.NewUserHandler(userService)
	tagHandler := handler.NewTagHandler(tagService)

	router := gin.Default()
	router.Use(otelgin.Middleware("account-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	authed := handler.SessionMiddleware(sessions, userService, sealer, cfg.Session.CookieName)
	setupRoutes(router, cfg, authHandler, userHandler, tagHandler, authed, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	tagHandler *handler.TagHandler,
	authed gin.HandlerFunc,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	throttled := handler.RateLimitMiddleware(rateLimiter,
		cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.RouteAndIPKey)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", throttled, authHandler.SignUp)
			auth.POST("/signin", throttled, authHandler.SignIn)
			auth.POST("/signout", authed, authHandler.SignOut)
			auth.POST("/deactivate", authed, authHandler.Deactivate)

			auth.POST("/verify-email/resend", throttled, authHandler.ResendVerification)
			auth.GET("/verify-email/:token", authHandler.ConfirmVerification)

			auth.POST("/recover", throttled, authHandler.Recover)
			auth.POST("/reset-password/:token", authHandler.ResetPassword)

			auth.POST("/reactivate", throttled, authHandler.Reactivate)
			auth.GET("/reactivate/:token", authHandler.ConfirmReactivation)

			if cfg.OAuth.Enabled() {
				auth.GET("/google", authHandler.Google)
				auth.GET("/google/callback", authHandler.GoogleCallback)
			}
		}

		users := api.Group("/users", authed)
		{
			users.GET("/me", userHandler.Me)
			users.PATCH("/me", userHandler.UpdateMe)
			users.GET("/me/identities", userHandler.Identities)
			users.PUT("/me/password", userHandler.ChangePassword)

			admin := handler.RequireRoles(domain.RoleAdmin, domain.RoleManager)
			users.GET("", admin, userHandler.List)
			users.GET("/:id", admin, userHandler.Get)
		}

		tags := api.Group("/tags")
		{
			tags.GET("", tagHandler.List)
			tags.GET("/:id", tagHandler.Get)
			tags.GET("/slug/:slug", tagHandler.GetBySlug)

			editor := handler.RequireRoles(domain.RoleAdmin, domain.RoleManager, domain.RoleWriter)
			tags.POST("", authed, editor, tagHandler.Create)
			tags.PUT("/:id", authed, editor, tagHandler.Update)
			tags.DELETE("/:id", authed, editor, tagHandler.Delete)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
