package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/HollandReese/bulwark/internal/models"
	pkglogger "github.com/HollandReese/bulwark/pkg/logger"
)

// LoginActivityStore defines the activity-log queries the monitor needs
type LoginActivityStore interface {
	Record(ctx context.Context, activity *models.LoginActivity) error
	CountFailuresSince(ctx context.Context, address string, since time.Time) (int, error)
	LastSuccessTime(ctx context.Context, address string) (*time.Time, error)
}

// BruteForceEscalator is the detection-engine hook the monitor calls when
// the failure threshold is reached
type BruteForceEscalator interface {
	HandleBruteForce(ctx context.Context, address, identifier string, failureCount int) error
}

// LoginMonitorConfig holds the brute-force thresholds
type LoginMonitorConfig struct {
	Window    time.Duration
	Threshold int
}

// LoginDirective tells the authentication flow whether to let the login
// proceed. Message, when set, replaces the client-facing response; it is
// always the generic credentials failure so blocking is never revealed.
type LoginDirective struct {
	Proceed bool
	Message string
}

// GenericLoginFailure is the only message ever surfaced to login clients
// on an engine-driven rejection
const GenericLoginFailure = "invalid credentials"

// LoginMonitorService correlates authentication failures per source address
// over a rolling window. Failures are counted from the later of the window
// start and the last successful login, so one success immediately zeroes the
// effective count.
type LoginMonitorService struct {
	activity  LoginActivityStore
	escalator BruteForceEscalator
	cfg       LoginMonitorConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewLoginMonitorService creates a new LoginMonitorService
func NewLoginMonitorService(activity LoginActivityStore, escalator BruteForceEscalator, cfg LoginMonitorConfig, logger *slog.Logger) *LoginMonitorService {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	return &LoginMonitorService{
		activity:  activity,
		escalator: escalator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// OnLoginResult is invoked by the authentication flow after every login
// attempt. On reaching the failure threshold it escalates and directs the
// caller to reject the in-flight login with the generic failure message.
func (s *LoginMonitorService) OnLoginResult(ctx context.Context, address, identifier string, success bool, userAgent string) (LoginDirective, error) {
	record := &models.LoginActivity{
		IPAddress:  address,
		Identifier: identifier,
		Success:    success,
		UserAgent:  userAgent,
	}
	if !success {
		reason := "invalid_credentials"
		record.FailureReason = &reason
	}

	if err := s.activity.Record(ctx, record); err != nil {
		// The activity log is an audit trail; losing one row must not
		// break the login flow
		s.logger.Error("failed to record login activity",
			slog.String("ip_address", address),
			slog.Any("error", err))
	}

	if success {
		return LoginDirective{Proceed: true}, nil
	}

	since := s.now().Add(-s.cfg.Window)
	lastSuccess, err := s.activity.LastSuccessTime(ctx, address)
	if err != nil {
		s.logger.Error("failed to read last success time, failing open",
			slog.String("ip_address", address),
			slog.Any("error", err))
		return LoginDirective{Proceed: true}, nil
	}
	if lastSuccess != nil && lastSuccess.After(since) {
		since = *lastSuccess
	}

	failures, err := s.activity.CountFailuresSince(ctx, address, since)
	if err != nil {
		s.logger.Error("failed to count login failures, failing open",
			slog.String("ip_address", address),
			slog.Any("error", err))
		return LoginDirective{Proceed: true}, nil
	}

	if failures < s.cfg.Threshold {
		return LoginDirective{Proceed: true}, nil
	}

	s.logger.Warn("brute force threshold reached",
		slog.String("ip_address", address),
		slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
		slog.Int("failures", failures),
		slog.Duration("window", s.cfg.Window))

	if err := s.escalator.HandleBruteForce(ctx, address, identifier, failures); err != nil {
		s.logger.Error("brute force escalation failed",
			slog.String("ip_address", address),
			slog.Any("error", err))
	}

	return LoginDirective{Proceed: false, Message: GenericLoginFailure}, nil
}
