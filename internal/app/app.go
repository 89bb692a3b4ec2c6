// Package app wires repositories, services, and the API handler from
// externally provided dependencies.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"studygroups/internal/api"
	"studygroups/internal/config"
	"studygroups/internal/db/repository"
	"studygroups/internal/domain"
	"studygroups/internal/middleware"
	"studygroups/internal/service/cleanup"
	"studygroups/internal/service/groups"
	"studygroups/internal/service/membership"
	"studygroups/internal/service/notify"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the root logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups the service pointers the API handler and CLI need.
type Services struct {
	Groups     *groups.Service
	Membership *membership.Service
	Sweeper    *cleanup.Sweeper
}

// App holds the fully-wired application.
type App struct {
	Services      Services
	Handler       *api.Handler
	Authenticator *middleware.Authenticator
	Scheduler     *cleanup.Scheduler
}

// New wires repositories and services from the provided deps. ctx is used for
// OIDC provider discovery when an external identity provider is configured.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	// Mutations go through the write pool, whose single connection
	// serializes the join capacity check; lookups and listings run on
	// the read pool.
	groupRepo := repository.NewStudyGroupRepo(deps.WriteDB, deps.ReadDB)
	participantRepo := repository.NewParticipantRepo(deps.WriteDB, deps.ReadDB)

	emails := domain.NewEmailPolicy(cfg.AllowedEmailDomains)

	var sender notify.Sender
	if cfg.Mail.Enabled() {
		sender = notify.NewResendSender(cfg.Mail.APIKey, cfg.Mail.From)
	}
	notifier := notify.New(sender, deps.Logger.With("component", "notify"))

	groupsSvc := groups.NewService(groupRepo, participantRepo, emails, deps.Logger.With("component", "groups"))
	membershipSvc := membership.NewService(groupRepo, participantRepo, emails, notifier, deps.Logger.With("component", "membership"))
	sweeper := cleanup.NewSweeper(groupRepo, deps.Logger.With("component", "cleanup"))

	scheduler, err := cleanup.NewScheduler(sweeper, cfg.SweepSchedule, deps.Logger.With("component", "cleanup"))
	if err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", cfg.SweepSchedule, err)
	}

	validator, err := buildValidator(ctx, &cfg.Auth)
	if err != nil {
		return nil, err
	}
	authn := middleware.NewAuthenticator(validator, cfg.Auth.EmailClaim, deps.Logger.With("component", "auth"))

	handler := api.NewHandler(groupsSvc, membershipSvc, sweeper, deps.Logger.With("component", "api"))

	return &App{
		Services: Services{
			Groups:     groupsSvc,
			Membership: membershipSvc,
			Sweeper:    sweeper,
		},
		Handler:       handler,
		Authenticator: authn,
		Scheduler:     scheduler,
	}, nil
}

// buildValidator picks the token validator for the configured auth mode:
// OIDC discovery, direct JWKS, or HS256 shared secret. With no auth
// configured every token is rejected, leaving only public endpoints usable.
func buildValidator(ctx context.Context, auth *config.AuthConfig) (middleware.TokenValidator, error) {
	switch {
	case auth.JWKSURL != "":
		return middleware.NewOIDCValidatorFromJWKS(ctx, auth.JWKSURL, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
	case auth.IssuerURL != "":
		return middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
	case auth.JWTSecret != "":
		return middleware.NewHS256Validator(auth.JWTSecret)
	default:
		return rejectAllValidator{}, nil
	}
}

type rejectAllValidator struct{}

func (rejectAllValidator) Validate(context.Context, string) (*middleware.Claims, error) {
	return nil, fmt.Errorf("no auth configured")
}
