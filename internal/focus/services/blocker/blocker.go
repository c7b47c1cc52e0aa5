// Package blocker runs the focus timer and keeps the installed blocking rule
// in step with the persisted timer and allow list.
package blocker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/haukened/focusd/internal/focus/common/clock"
	"github.com/haukened/focusd/internal/focus/common/log"
	"github.com/haukened/focusd/internal/focus/domain"
)

// Service is the focus blocker. Every entry point runs to completion under
// one lock and starts with the lazy expiry check.
type Service struct {
	mu             sync.Mutex
	state          StateRepository
	rules          RuleInstaller
	sites          SiteCodec
	clock          clock.Clock
	logger         log.Logger
	blockPageURL   string
	defaultMessage string
}

// Options configures a Service.
type Options struct {
	State          StateRepository
	Rules          RuleInstaller
	Sites          SiteCodec
	Clock          clock.Clock
	Logger         log.Logger
	BlockPageURL   string
	DefaultMessage string
}

// New builds a Service.
func New(opts Options) *Service {
	s := &Service{
		state:          opts.State,
		rules:          opts.Rules,
		sites:          opts.Sites,
		clock:          opts.Clock,
		logger:         opts.Logger,
		blockPageURL:   opts.BlockPageURL,
		defaultMessage: opts.DefaultMessage,
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = log.NewNoopLogger()
	}
	return s
}

// Install initializes storage defaults on first run, then behaves like Startup.
// A non-nil seed becomes the initial allow list, written with the defaults.
func (s *Service) Install(ctx context.Context, seed domain.AllowList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	wrote, err := s.state.Initialize(s.defaultMessage, seed)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if wrote {
		s.logger.Info(nil, "Focus blocker installed")
	}
	if _, err := s.checkExpiry(); err != nil {
		return err
	}
	return s.syncRules()
}

// Startup checks expiry and reinstalls the rule for the persisted state.
func (s *Service) Startup(ctx context.Context) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.logger.Info(nil, "Focus blocker starting up")
	return s.syncRules()
}

// StartTimer activates blocking for hours from now. If the rule cannot be
// installed the previous timer is restored and the error returned.
func (s *Service) StartTimer(ctx context.Context, hours float64) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	timer, err := domain.StartTimer(s.clock.Now(), hours)
	if err != nil {
		return err
	}
	prev, err := s.state.Timer()
	if err != nil {
		return err
	}
	if err := s.state.SaveTimer(timer); err != nil {
		return err
	}
	if err := s.syncRules(); err != nil {
		return s.rollback(err, "timer", func() error { return s.state.SaveTimer(prev) })
	}
	s.logger.Info(map[string]any{
		"hours":   hours,
		"ends_at": timer.EndTime.Format(time.RFC3339),
	}, "Timer started")
	return nil
}

// StopTimer deactivates blocking.
func (s *Service) StopTimer(ctx context.Context) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.stop()
}

// Status returns the timer and allow list snapshot.
func (s *Service) Status(ctx context.Context) (domain.Status, error) {
	if err := s.enter(ctx); err != nil {
		return domain.Status{}, err
	}
	defer s.mu.Unlock()

	timer, err := s.state.Timer()
	if err != nil {
		return domain.Status{}, err
	}
	allowed, err := s.state.AllowList()
	if err != nil {
		return domain.Status{}, err
	}
	return domain.NewStatus(timer, allowed), nil
}

// Remaining returns the time left on the timer.
func (s *Service) Remaining(ctx context.Context) (time.Duration, error) {
	if err := s.enter(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	timer, err := s.state.Timer()
	if err != nil {
		return 0, err
	}
	return timer.Remaining(s.clock.Now()), nil
}

// AddAllowedSite adds the normalized site. Adding a present site changes nothing.
// If the rule cannot be updated the stored list is left as it was.
func (s *Service) AddAllowedSite(ctx context.Context, site string) (domain.AllowList, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	allowed, err := s.state.AllowList()
	if err != nil {
		return nil, err
	}
	next, changed, err := allowed.Add(site)
	if err != nil {
		return allowed, err
	}
	if !changed {
		return allowed, nil
	}
	if err := s.saveSites(allowed, next); err != nil {
		return nil, err
	}
	s.logger.Debug(map[string]any{"site": next[len(next)-1]}, "Allowed site added")
	return next, nil
}

// RemoveAllowedSite removes site from the allow list. If the rule cannot be
// updated the stored list is left as it was.
func (s *Service) RemoveAllowedSite(ctx context.Context, site string) (domain.AllowList, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	allowed, err := s.state.AllowList()
	if err != nil {
		return nil, err
	}
	next := allowed.Remove(site)
	if err := s.saveSites(allowed, next); err != nil {
		return nil, err
	}
	s.logger.Debug(map[string]any{"site": site}, "Allowed site removed")
	return next, nil
}

// UpdateAllowedSites replaces the allow list with sites, stored as given.
// A failed rule update leaves the stored list unchanged.
func (s *Service) UpdateAllowedSites(ctx context.Context, sites domain.AllowList) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.replaceSites(sites)
}

// BlockMessage returns the block page message, or the default when unset.
func (s *Service) BlockMessage(ctx context.Context) (string, error) {
	if err := s.enter(ctx); err != nil {
		return "", err
	}
	defer s.mu.Unlock()
	return s.blockMessage()
}

// SetBlockMessage stores msg.
func (s *Service) SetBlockMessage(ctx context.Context, msg string) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.state.SaveBlockMessage(msg)
}

// ExportSites renders the allow list in the export format.
func (s *Service) ExportSites(ctx context.Context) ([]byte, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	allowed, err := s.state.AllowList()
	if err != nil {
		return nil, err
	}
	return s.sites.Export(allowed)
}

// ImportSites replaces the allow list with the sites in data. Malformed
// data leaves the list untouched and returns an error wrapping domain.ErrInvalidImport.
func (s *Service) ImportSites(ctx context.Context, data []byte) (domain.AllowList, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	sites, err := s.sites.Import(data)
	if err != nil {
		s.logger.Warn(map[string]any{"error": err.Error()}, "Rejected site list import")
		return nil, err
	}
	if err := s.replaceSites(sites); err != nil {
		return nil, err
	}
	s.logger.Info(map[string]any{"sites": len(sites)}, "Sites imported")
	return sites, nil
}

// BlockedPage describes a blocked navigation for the block page.
func (s *Service) BlockedPage(ctx context.Context, rawURL string) (domain.BlockedPage, error) {
	if err := s.enter(ctx); err != nil {
		return domain.BlockedPage{}, err
	}
	defer s.mu.Unlock()

	timer, err := s.state.Timer()
	if err != nil {
		return domain.BlockedPage{}, err
	}
	msg, err := s.blockMessage()
	if err != nil {
		return domain.BlockedPage{}, err
	}
	return domain.BlockedPage{
		Host:      domain.DescribeBlockedURL(rawURL),
		Message:   msg,
		Remaining: timer.FormatRemaining(s.clock.Now()),
		IsActive:  timer.IsActive,
	}, nil
}

// CheckNavigation evaluates req against the installed rules.
func (s *Service) CheckNavigation(ctx context.Context, req domain.NavigationRequest) (domain.BlockDecision, error) {
	if err := s.enter(ctx); err != nil {
		return domain.BlockDecision{}, err
	}
	defer s.mu.Unlock()

	if strings.TrimSpace(req.URL) == "" {
		return domain.BlockDecision{}, errors.New("navigation url must not be empty")
	}
	return s.rules.Evaluate(req), nil
}

// Rules returns the installed rules.
func (s *Service) Rules(ctx context.Context) ([]domain.BlockRule, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.rules.DynamicRules(), nil
}

// enter takes the lock and runs the expiry check. On success the caller
// owns the lock and must release it.
func (s *Service) enter(ctx context.Context) error {
	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, err := s.checkExpiry(); err != nil {
		s.mu.Unlock()
		return err
	}
	return nil
}

// checkExpiry stops an active timer whose end time has passed.
func (s *Service) checkExpiry() (bool, error) {
	timer, err := s.state.Timer()
	if err != nil {
		return false, err
	}
	if _, expired := timer.CheckExpiry(s.clock.Now()); !expired {
		return false, nil
	}
	s.logger.Info(map[string]any{"ended_at": timer.EndTime.Format(time.RFC3339)}, "Timer expired")
	return true, s.stop()
}

func (s *Service) stop() error {
	if err := s.state.SaveTimer(domain.StoppedTimer()); err != nil {
		return err
	}
	s.logger.Info(nil, "Timer stopped")
	return s.syncRules()
}

func (s *Service) replaceSites(sites domain.AllowList) error {
	if sites == nil {
		sites = domain.AllowList{}
	}
	prev, err := s.state.AllowList()
	if err != nil {
		return err
	}
	return s.saveSites(prev, sites)
}

// saveSites persists next and resyncs the rule, restoring prev when the
// rule update fails so storage keeps matching the installed rule.
func (s *Service) saveSites(prev, next domain.AllowList) error {
	if err := s.state.SaveAllowList(next); err != nil {
		return err
	}
	if err := s.syncRules(); err != nil {
		return s.rollback(err, "allow list", func() error { return s.state.SaveAllowList(prev) })
	}
	return nil
}

// rollback runs restore after a failed rule sync and combines its error with cause.
func (s *Service) rollback(cause error, what string, restore func() error) error {
	if err := restore(); err != nil {
		s.logger.Error(map[string]any{"error": err.Error()}, "Failed to restore "+what)
		return multierr.Append(cause, fmt.Errorf("failed to restore %s: %w", what, err))
	}
	s.logger.Warn(map[string]any{"error": cause.Error()}, "Rule update failed, "+what+" restored")
	return cause
}

func (s *Service) blockMessage() (string, error) {
	msg, err := s.state.BlockMessage()
	if err != nil {
		return "", err
	}
	if msg == "" {
		msg = s.defaultMessage
	}
	return msg, nil
}

// syncRules removes every installed rule and installs the one derived from
// persisted state, if any.
func (s *Service) syncRules() error {
	timer, err := s.state.Timer()
	if err != nil {
		return err
	}
	allowed, err := s.state.AllowList()
	if err != nil {
		return err
	}

	existing := s.rules.DynamicRules()
	ids := make([]int, 0, len(existing))
	for _, r := range existing {
		ids = append(ids, r.ID)
	}

	rule, ok := domain.DeriveRule(timer.IsActive, allowed, s.blockPageURL)
	var add []domain.BlockRule
	if ok {
		add = []domain.BlockRule{rule}
	}
	if err := s.rules.UpdateDynamicRules(ids, add); err != nil {
		return fmt.Errorf("failed to update blocking rules: %w", err)
	}

	if !ok {
		s.logger.Info(nil, "Blocking disabled")
		return nil
	}
	s.logger.Info(map[string]any{
		"rule_id":    rule.ID,
		"exceptions": rule.Exceptions(),
	}, "Blocking rules updated")
	return nil
}
