package sync

import (
	"context"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/ticketstore"
)

// SyncState represents the current state of the board refresh.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncRunning:
		return "syncing"
	case SyncError:
		return "error"
	default:
		return fmt.Sprintf("SyncState(%d)", int(s))
	}
}

// SyncStatus holds the refresh state.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a refresh completes.
type SyncResultMsg struct {
	Board model.BoardState
	Error error

	// AuthError is set when the ticket API rejected the token.
	AuthError bool
}

// Board is the part of the reconciliation controller the poller drives.
type Board interface {
	Resync(ctx context.Context) error
	State() model.BoardState
}

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Options configures a Poller. A non-empty Schedule takes precedence
// over Interval; with neither the poller only refreshes on demand.
type Options struct {
	Interval time.Duration
	Schedule string
	Logger   log.FieldLogger
}

// Poller refreshes the board from the ticket store in the background.
type Poller struct {
	board     Board
	interval  time.Duration
	schedule  cron.Schedule
	log       log.FieldLogger
	status    SyncStatus
	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
	now       func() time.Time
}

// New creates a Poller for board. It fails only on an invalid schedule.
func New(board Board, opts Options) (*Poller, error) {
	p := &Poller{
		board:     board,
		interval:  opts.Interval,
		log:       opts.Logger,
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
	if p.log == nil {
		p.log = log.StandardLogger()
	}
	if opts.Schedule != "" {
		sched, err := cronParser.Parse(opts.Schedule)
		if err != nil {
			return nil, fmt.Errorf("parsing refresh schedule %q: %w", opts.Schedule, err)
		}
		p.schedule = sched
	}
	return p, nil
}

// Start returns a tea.Cmd that starts the polling goroutine and waits for
// the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate refresh.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already pending.
	}
	return nil
}

// Status returns the current refresh status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// nextDelay returns the wait until the next scheduled refresh, or false
// when refreshes only happen on demand.
func (p *Poller) nextDelay() (time.Duration, bool) {
	if p.schedule != nil {
		now := p.now()
		return max(p.schedule.Next(now).Sub(now), 0), true
	}
	if p.interval > 0 {
		return p.interval, true
	}
	return 0, false
}

func (p *Poller) loop() {
	for {
		var tick <-chan time.Time
		var timer *time.Timer
		if d, ok := p.nextDelay(); ok {
			timer = time.NewTimer(d)
			tick = timer.C
		}

		select {
		case <-p.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-tick:
			p.refresh()
		case <-p.triggerCh:
			if timer != nil {
				timer.Stop()
			}
			p.refresh()
		}
	}
}

// refresh performs a single resync and sends a SyncResultMsg on the
// result channel.
func (p *Poller) refresh() {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	if err := p.board.Resync(ctx); err != nil {
		p.setStatus(SyncError, err)
		p.sendResult(SyncResultMsg{Error: err, AuthError: isAuthError(err)})
		return
	}

	p.setStatus(SyncIdle, nil)
	p.sendResult(SyncResultMsg{Board: p.board.State()})
}

func isAuthError(err error) bool {
	return ticketstore.IsRemoteStatus(err, http.StatusUnauthorized) ||
		ticketstore.IsRemoteStatus(err, http.StatusForbidden)
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = p.now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		p.log.Warn("dropping refresh result, nobody is listening")
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it after handling each SyncResultMsg.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
