// Package sync watches the mailbox for new mail in the background. It only
// reports counts; the inbox store is refreshed by the user.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/mailboard/internal/source"
)

// State is the poller's current activity.
type State int

const (
	Idle State = iota
	Running
	Failed
)

// Status is a snapshot of the poller.
type Status struct {
	State    State
	LastPoll time.Time
	Err      error
}

// NewMailMsg is a tea.Msg carrying how many ids on the first page are not
// among the loaded messages. Err is set when the poll failed.
type NewMailMsg struct {
	Count int
	Err   error
}

// pollTimeout is the maximum time allowed for a single poll.
const pollTimeout = 30 * time.Second

// Poller periodically lists the first page with the active query and
// compares it against the ids the UI has loaded.
type Poller struct {
	provider source.Provider
	interval time.Duration
	pageSize int
	logger   *zap.Logger

	resultCh  chan NewMailMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	running bool
	query   string
	known   map[string]struct{}
	status  Status
}

// New creates a poller. A non-positive interval disables the ticker;
// Refresh still works.
func New(p source.Provider, interval time.Duration, pageSize int, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		provider:  p,
		interval:  interval,
		pageSize:  pageSize,
		logger:    logger,
		resultCh:  make(chan NewMailMsg, 4),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		known:     map[string]struct{}{},
	}
}

// Track replaces the query and loaded ids the next poll compares against.
// Call it from the UI goroutine after every page load.
func (p *Poller) Track(query string, loadedIDs []string) {
	known := make(map[string]struct{}, len(loadedIDs))
	for _, id := range loadedIDs {
		known[id] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.query = query
	p.known = known
}

// Start launches the polling goroutine and returns a command that
// delivers the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()
	return p.WaitForNextResult()
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

// Refresh asks for an immediate poll.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the current poller status.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-tick:
			p.poll()
		case <-p.triggerCh:
			p.poll()
		}
	}
}

// poll runs one comparison and publishes the result.
func (p *Poller) poll() {
	p.mu.Lock()
	query, known := p.query, p.known
	p.status.State = Running
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	page, err := p.provider.ListMessages(ctx, query, p.pageSize, "")

	p.mu.Lock()
	if err != nil {
		p.status = Status{State: Failed, LastPoll: p.status.LastPoll, Err: err}
	} else {
		p.status = Status{State: Idle, LastPoll: time.Now()}
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("new mail poll failed", zap.Error(err))
		p.send(NewMailMsg{Err: err})
		return
	}

	count := 0
	for _, m := range page.Messages {
		if _, ok := known[m.ID]; !ok {
			count++
		}
	}
	p.logger.Debug("new mail poll", zap.Int("new", count))
	p.send(NewMailMsg{Count: count})
}

// send publishes without blocking; when the UI is behind, the older
// result is replaced.
func (p *Poller) send(msg NewMailMsg) {
	for {
		select {
		case p.resultCh <- msg:
			return
		default:
		}
		select {
		case <-p.resultCh:
		default:
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll result.
// Call it again after handling each NewMailMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.resultCh:
			return msg
		case <-p.stopCh:
			return nil
		}
	}
}
