// Package classify keeps every loaded message eventually classified. It
// batches unclassified ids after a quiet period, tracks submitted ids in an
// in-flight set so they are never sent twice, and rolls a failed batch back
// so the ids are picked up again on the next cycle.
//
// Pipeline is driven from the Bubble Tea update loop and is not safe for
// concurrent use.
package classify

import (
	"cmp"
	"context"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/mailboard/internal/inbox"
	"github.com/nhle/mailboard/internal/metrics"
	"github.com/nhle/mailboard/internal/model"
)

const (
	DefaultDebounce  = time.Second
	DefaultBatchSize = 50
	callTimeout      = 2 * time.Minute
)

// Service classifies a batch of messages. knownIDs lists every loaded
// message so the service can mark redundant ones.
type Service interface {
	ClassifyBatch(
		ctx context.Context,
		batch []model.MessageSummary,
		knownIDs []string,
	) ([]model.Classification, error)
}

// Persister stores automatic results. Implementations must not overwrite
// manual records.
type Persister interface {
	SaveClassifications(ctx context.Context, cs []model.Classification) error
}

// TickMsg fires when a debounce window elapses.
type TickMsg struct {
	Gen uint64
}

// ResultMsg carries a finished batch back to the update loop.
type ResultMsg struct {
	IDs     []string
	Results []model.Classification
	Err     error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDebounce sets the quiet period before a batch is taken.
func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) { p.debounce = d }
}

// WithBatchSize sets the batch ceiling.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithPersister stores successful results.
func WithPersister(s Persister) Option {
	return func(p *Pipeline) { p.persist = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline schedules classification batches.
type Pipeline struct {
	svc       Service
	persist   Persister
	logger    *zap.Logger
	debounce  time.Duration
	batchSize int

	inFlight model.Set[string]
	// firstSeen orders pending ids so the longest-waiting go first.
	firstSeen map[string]uint64
	seq       uint64
	tickGen   uint64
	pending   bool
	// retry is set when a batch fails and cleared once a new window starts.
	retry bool
}

// New returns a pipeline calling svc.
func New(svc Service, opts ...Option) *Pipeline {
	p := &Pipeline{
		svc:       svc,
		logger:    zap.NewNop(),
		debounce:  DefaultDebounce,
		batchSize: DefaultBatchSize,
		inFlight:  model.Set[string]{},
		firstSeen: map[string]uint64{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// InFlight returns how many ids are awaiting a response.
func (p *Pipeline) InFlight() int {
	return len(p.inFlight)
}

// IsInFlight reports whether id has been submitted and not yet answered.
func (p *Pipeline) IsInFlight(id string) bool {
	return p.inFlight.Has(id)
}

// Unclassified returns loaded ids that are neither classified nor in
// flight, longest-waiting first.
func (p *Pipeline) Unclassified(s inbox.State) []string {
	var out []string
	for _, m := range s.Messages {
		if _, ok := s.Classifications[m.ID]; ok {
			continue
		}
		if p.inFlight.Has(m.ID) {
			continue
		}
		out = append(out, m.ID)
	}
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(p.firstSeen[a], p.firstSeen[b])
	})
	return out
}

// Observe is called whenever the loaded list changes. It restarts the
// debounce window if anything is left to classify.
func (p *Pipeline) Observe(s inbox.State) tea.Cmd {
	loaded := make(model.Set[string], len(s.Messages))
	for _, m := range s.Messages {
		loaded[m.ID] = struct{}{}
		if _, ok := p.firstSeen[m.ID]; !ok {
			p.seq++
			p.firstSeen[m.ID] = p.seq
		}
	}
	for id := range p.firstSeen {
		if !loaded.Has(id) {
			delete(p.firstSeen, id)
		}
	}

	p.retry = false
	if len(p.Unclassified(s)) == 0 {
		return nil
	}

	p.tickGen++
	p.pending = true
	gen := p.tickGen
	return tea.Tick(p.debounce, func(time.Time) tea.Msg {
		return TickMsg{Gen: gen}
	})
}

// Retrying reports whether a failed batch is waiting for the next list
// event to start a new window.
func (p *Pipeline) Retrying() bool {
	return p.retry
}

// Pending reports whether a debounce window is running.
func (p *Pipeline) Pending() bool {
	return p.pending
}

// HandleTick takes a batch once the latest debounce window has elapsed.
// Ticks from superseded windows are ignored.
func (p *Pipeline) HandleTick(msg TickMsg, s inbox.State) tea.Cmd {
	if msg.Gen != p.tickGen {
		return nil
	}
	p.pending = false

	ids := p.Unclassified(s)
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > p.batchSize {
		ids = ids[:p.batchSize]
	}

	batch := make([]model.MessageSummary, 0, len(ids))
	for _, id := range ids {
		m, _ := s.Message(id)
		batch = append(batch, m.Summary())
		p.inFlight[id] = struct{}{}
	}
	metrics.SetInFlight(len(p.inFlight))

	known := s.LoadedIDs()
	p.logger.Debug("submitting classification batch",
		zap.Int("batch_size", len(batch)),
		zap.Int("known", len(known)),
	)
	return p.run(ids, batch, known)
}

func (p *Pipeline) run(ids []string, batch []model.MessageSummary, known []string) tea.Cmd {
	svc, persist, logger := p.svc, p.persist, p.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		start := time.Now()
		results, err := svc.ClassifyBatch(ctx, batch, known)
		results = keepSubmitted(results, ids)
		metrics.RecordClassifyBatch(len(ids), len(results), err, time.Since(start))
		if err != nil {
			return ResultMsg{IDs: ids, Err: err}
		}

		if persist != nil && len(results) > 0 {
			if perr := persist.SaveClassifications(ctx, results); perr != nil {
				logger.Warn("persisting classifications", zap.Error(perr))
			}
		}
		return ResultMsg{IDs: ids, Results: results}
	}
}

// keepSubmitted drops results for ids that were not part of the batch and
// duplicate results for the same id.
func keepSubmitted(results []model.Classification, ids []string) []model.Classification {
	want := model.NewSet(ids...)
	seen := model.Set[string]{}
	out := results[:0:0]
	for _, r := range results {
		if !want.Has(r.MessageID) || seen.Has(r.MessageID) {
			continue
		}
		seen[r.MessageID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// HandleResult clears the batch from the in-flight set and merges results
// into the store. A failed batch is not retried right away: it is logged
// and marked for retry, and the next list event starts a new window even
// when the loaded ids are unchanged. A full successful batch schedules another
// cycle so a backlog drains.
func (p *Pipeline) HandleResult(msg ResultMsg, store *inbox.Store) tea.Cmd {
	for _, id := range msg.IDs {
		delete(p.inFlight, id)
	}
	metrics.SetInFlight(len(p.inFlight))

	if msg.Err != nil {
		p.logger.Warn("classification batch failed",
			zap.Int("batch_size", len(msg.IDs)),
			zap.Error(msg.Err),
		)
		p.retry = true
		return nil
	}

	store.Dispatch(inbox.MergeClassifications{Batch: msg.Results})
	if len(msg.IDs) >= p.batchSize {
		return p.Observe(store.State())
	}
	return nil
}
