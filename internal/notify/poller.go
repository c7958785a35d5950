package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/session"
)

// DefaultPollInterval is the scan cadence when none is configured.
const DefaultPollInterval = 30 * time.Second

// sectionScanner is what the poller drives each pass. Satisfied by Scanner.
type sectionScanner interface {
	ScanChat(ctx context.Context, sess session.Session, section string, clanScoped bool)
	ScanModeration(ctx context.Context, sess session.Session, sections []string)
}

// PollerConfig names the sections one scan pass covers.
type PollerConfig struct {
	Interval           time.Duration
	ChatSection        string   // global chat, always scanned
	ClanChatSection    string   // scanned iff the user has a clan
	ModerationSections []string // scanned iff the user can moderate
}

// Poller drives periodic scan passes across all relevant sections. One
// goroutine owns the loop, so section scans within a pass run sequentially
// and no two passes overlap; a tick that fires while a pass is still
// running is skipped, not queued.
type Poller struct {
	scanner  sectionScanner
	sessions session.Provider
	cfg      PollerConfig
	clock    Clock
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(scanner sectionScanner, sessions session.Provider, cfg PollerConfig, clock Clock, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	return &Poller{
		scanner:  scanner,
		sessions: sessions,
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
	}
}

// Start runs one immediate scan pass and then arms the recurring timer.
// Idempotent: a running poller is left alone.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	stopCh, done := p.stopCh, p.done
	p.mu.Unlock()

	go p.loop(stopCh, done)
}

// Stop cancels the timer and waits for any in-flight pass to finish, so no
// store mutation happens after it returns. Safe to call when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	done := p.done
	p.mu.Unlock()

	<-done
}

func (p *Poller) loop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx := context.Background()

	ticker := p.clock.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.pass(ctx)
	drainTick(ticker)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			p.pass(ctx)
			drainTick(ticker)
		}
	}
}

// drainTick drops a tick that fired while a pass was still running, so an
// overrun skips the missed interval instead of running back-to-back passes.
func drainTick(t Ticker) {
	select {
	case <-t.C():
	default:
	}
}

// pass is one sweep: global chat, clan chat when the user has one, then the
// clan moderation queues when the user may moderate. Without an active
// session the pass is a no-op.
func (p *Poller) pass(ctx context.Context) {
	sess, ok := p.sessions.Current()
	if !ok {
		p.logger.Debug("scan pass skipped, no active session")
		return
	}

	p.scanner.ScanChat(ctx, sess, p.cfg.ChatSection, false)
	if sess.HasClan() {
		p.scanner.ScanChat(ctx, sess, p.cfg.ClanChatSection, true)
	}
	if sess.HasClan() && sess.CanModerate() {
		p.scanner.ScanModeration(ctx, sess, p.cfg.ModerationSections)
	}
}
