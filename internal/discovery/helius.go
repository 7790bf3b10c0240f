package discovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/domain"
	"github.com/dexlab-run/mintscan/internal/solana"
)

// Sink accepts discovered candidates. Offer must never block; it
// returns false when the candidate was not accepted (queue full or
// shutting down).
type Sink interface {
	Offer(domain.Candidate) bool
}

// HeliusProducerOptions configures the mint-initialization producer.
type HeliusProducerOptions struct {
	// Client is the log subscription transport. Required.
	Client solana.WSClient
	// Sink receives discovered candidates. Required.
	Sink Sink
	// RPC resolves mints from transactions when log heuristics fail.
	// Optional.
	RPC solana.RPCClient
	// Programs to subscribe to. Defaults to the SPL Token program.
	Programs []string
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// HeliusProducer watches program logs for InitializeMint instructions
// and feeds fresh mints into the pipeline.
type HeliusProducer struct {
	client   solana.WSClient
	rpc      solana.RPCClient
	sink     Sink
	programs []string
	log      zerolog.Logger

	emitted atomic.Uint64
	dropped atomic.Uint64
}

// NewHeliusProducer validates options and builds the producer.
func NewHeliusProducer(opts HeliusProducerOptions) (*HeliusProducer, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("ws client is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	programs := opts.Programs
	if len(programs) == 0 {
		programs = []string{TokenProgram}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &HeliusProducer{
		client:   opts.Client,
		rpc:      opts.RPC,
		sink:     opts.Sink,
		programs: programs,
		log:      logger.With().Str("component", "helius_producer").Logger(),
	}, nil
}

// Run subscribes once per program and processes notifications until the
// context is cancelled or all subscription channels close.
func (p *HeliusProducer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, program := range p.programs {
		ch, err := p.client.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{program}})
		if err != nil {
			return fmt.Errorf("subscribe logs for %s: %w", program, err)
		}
		p.log.Info().Str("program", program).Msg("subscribed to program logs")

		wg.Add(1)
		go func(ch <-chan solana.LogNotification) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case notif, ok := <-ch:
					if !ok {
						return
					}
					p.handle(ctx, notif)
				}
			}
		}(ch)
	}
	wg.Wait()
	return ctx.Err()
}

func (p *HeliusProducer) handle(ctx context.Context, notif solana.LogNotification) {
	// Failed transactions never create a usable mint.
	if notif.Err != nil {
		return
	}
	if !HasMintInitialization(notif.Logs) {
		return
	}

	mint := ExtractMintFromLogs(notif.Logs)
	if mint == "" {
		mint = p.resolveFromTransaction(ctx, notif.Signature)
	}
	if mint == "" {
		p.log.Debug().Str("signature", notif.Signature).Msg("mint initialization without resolvable mint")
		return
	}

	cand := domain.Candidate{
		Mint:       mint,
		Signature:  notif.Signature,
		Source:     domain.SourceHeliusLogs,
		ReceivedAt: time.Now(),
	}
	if !p.sink.Offer(cand) {
		p.dropped.Add(1)
		p.log.Warn().Str("mint", mint).Msg("candidate dropped, queue full")
		return
	}
	p.emitted.Add(1)
	p.log.Info().
		Str("mint", mint).
		Str("signature", notif.Signature).
		Str("source", domain.SourceHeliusLogs.String()).
		Msg("candidate discovered")
}

// resolveFromTransaction fetches the transaction and picks the mint
// from postTokenBalances when they agree on a single mint, falling back
// to the first plausible account key.
func (p *HeliusProducer) resolveFromTransaction(ctx context.Context, signature string) string {
	if p.rpc == nil || signature == "" {
		return ""
	}
	tx, err := p.rpc.GetTransaction(ctx, signature)
	if err != nil {
		p.log.Debug().Err(err).Str("signature", signature).Msg("transaction lookup failed")
		return ""
	}
	if tx == nil {
		return ""
	}
	if tx.Meta != nil {
		distinct := tx.Meta.DistinctPostMints()
		fresh := distinct[:0]
		for _, m := range distinct {
			if !IsDenied(m) {
				fresh = append(fresh, m)
			}
		}
		if len(fresh) == 1 {
			return fresh[0]
		}
	}
	if tx.Message != nil {
		for _, key := range tx.Message.AccountKeys {
			if IsLikelyMint(key) {
				return key
			}
		}
	}
	return ""
}

// Emitted reports candidates accepted by the sink.
func (p *HeliusProducer) Emitted() uint64 { return p.emitted.Load() }

// Dropped reports candidates rejected by a full sink.
func (p *HeliusProducer) Dropped() uint64 { return p.dropped.Load() }
