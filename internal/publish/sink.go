package publish

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// SinkOptions configures the dispatch sink.
type SinkOptions struct {
	// Notifier delivers chat alerts. Optional; nil disables chat output.
	Notifier Notifier
	// Events receives every summary as a JSON line. Required.
	Events *LineWriter
	// Rejects receives drop summaries as JSON lines. Required.
	Rejects *LineWriter
	// Book tracks open positions. Required.
	Book *PositionBook
	// Archive receives every record for long-term storage. Optional.
	Archive EventArchiver
	// Hooks observe publish and rug outcomes. Optional.
	Hooks []PublishHook
	// Cooldown suppresses repeat chat alerts per mint. Defaults to 180 s.
	Cooldown time.Duration
	// OnOutcome observes dispatch outcomes: published, cooldown_skip,
	// rejected, rug_removed, notify_error. Optional, used for metrics.
	OnOutcome func(outcome string)
	Logger    *zerolog.Logger
}

// Sink is the single exit of the pipeline: every summary flows through
// Dispatch exactly once per evaluation pass.
type Sink struct {
	notifier  Notifier
	events    *LineWriter
	rejects   *LineWriter
	book      *PositionBook
	archive   EventArchiver
	hooks     []PublishHook
	cooldown  time.Duration
	onOutcome func(string)
	log       zerolog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

// NewSink builds the sink.
func NewSink(opts SinkOptions) *Sink {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = 180 * time.Second
	}
	return &Sink{
		notifier:  opts.Notifier,
		events:    opts.Events,
		rejects:   opts.Rejects,
		book:      opts.Book,
		archive:   opts.Archive,
		hooks:     opts.Hooks,
		cooldown:  cooldown,
		onOutcome: opts.OnOutcome,
		log:       logger.With().Str("component", "publish_sink").Logger(),
		lastSent:  make(map[string]time.Time),
		now:       time.Now,
	}
}

// Dispatch routes one summary: the event line is always written, drops
// additionally land in the rejects file, publishes update the position
// book and — cooldown permitting — the chat channel.
func (s *Sink) Dispatch(ctx context.Context, sum *domain.Summary) {
	rec := domain.NewEventRecord(sum)

	if s.events != nil {
		if err := s.events.Write(rec); err != nil {
			s.log.Error().Err(err).Str("mint", sum.Mint).Msg("event line write failed")
		}
	}
	if s.archive != nil {
		s.archive.ArchiveEvent(ctx, rec)
	}

	if sum.RugAlert {
		if s.book != nil {
			if err := s.book.Remove(sum.Mint); err != nil {
				s.log.Error().Err(err).Str("mint", sum.Mint).Msg("position remove failed")
			}
		}
		for _, h := range s.hooks {
			h.OnRug(ctx, sum.Mint)
		}
		s.note("rug_removed")
	}

	if sum.Decision != domain.DecisionPublish {
		if s.rejects != nil {
			if err := s.rejects.Write(rec); err != nil {
				s.log.Error().Err(err).Str("mint", sum.Mint).Msg("reject line write failed")
			}
		}
		s.note("rejected")
		return
	}

	updated := false
	if s.book != nil {
		updated = s.hasPosition(sum.Mint)
		if err := s.book.Upsert(sum); err != nil {
			s.log.Error().Err(err).Str("mint", sum.Mint).Msg("position upsert failed")
		}
	}
	for _, h := range s.hooks {
		h.OnPublish(ctx, sum)
	}

	if !s.allowNotify(sum.Mint) {
		s.log.Debug().Str("mint", sum.Mint).Msg("chat alert suppressed by cooldown")
		s.note("cooldown_skip")
		return
	}

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, FormatAlert(sum, updated)); err != nil {
			s.log.Error().Err(err).Str("mint", sum.Mint).Msg("chat notify failed")
			s.note("notify_error")
			// The cooldown slot stays claimed; a failed send is not worth
			// re-spamming on the next pass.
			return
		}
	}
	s.note("published")
}

// NotifySymbolUpdate sends the short follow-up after a placeholder
// symbol resolves for an already-published token. When the resolving
// provider joins the OK sources from the last pass and at least two
// distinct sources now agree, a confluence notice follows. Both
// messages bypass the cooldown.
func (s *Sink) NotifySymbolUpdate(ctx context.Context, mint string, rs domain.ResolvedSymbol) {
	if s.notifier == nil || s.book == nil {
		return
	}
	pos, ok := s.book.Get(mint)
	if !ok {
		return
	}
	if err := s.notifier.Send(ctx, FormatSymbolUpdate(mint, rs)); err != nil {
		s.log.Error().Err(err).Str("mint", mint).Msg("symbol update notify failed")
	}

	sources := mergeSources(pos.Sources, rs.Source)
	if len(sources) < 2 {
		return
	}
	if err := s.notifier.Send(ctx, FormatConfluenceUpdate(mint, sources)); err != nil {
		s.log.Error().Err(err).Str("mint", mint).Msg("confluence notify failed")
	}
}

// mergeSources unions the last pass's OK sources with the resolving
// provider, preserving order.
func mergeSources(sources []string, extra string) []string {
	out := make([]string, 0, len(sources)+1)
	seen := make(map[string]struct{}, len(sources)+1)
	for _, src := range sources {
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	if extra != "" {
		if _, ok := seen[extra]; !ok {
			out = append(out, extra)
		}
	}
	return out
}

func (s *Sink) hasPosition(mint string) bool {
	return s.book.Has(mint)
}

// allowNotify claims the cooldown slot when the mint is outside its
// window.
func (s *Sink) allowNotify(mint string) bool {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastSent[mint]; ok && now.Sub(last) < s.cooldown {
		return false
	}
	s.lastSent[mint] = now
	return true
}

// EvictCooldowns removes expired cooldown entries. Returns the number
// removed.
func (s *Sink) EvictCooldowns() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for mint, last := range s.lastSent {
		if now.Sub(last) >= s.cooldown {
			delete(s.lastSent, mint)
			evicted++
		}
	}
	return evicted
}

// CooldownSize reports the number of tracked cooldown slots.
func (s *Sink) CooldownSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastSent)
}

func (s *Sink) note(outcome string) {
	if s.onOutcome != nil {
		s.onOutcome(outcome)
	}
}

// Close flushes and closes the line writers.
func (s *Sink) Close() error {
	var first error
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			first = err
		}
	}
	if s.rejects != nil {
		if err := s.rejects.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
