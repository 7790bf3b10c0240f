package discovery

import (
	"testing"

	"github.com/dexlab-run/mintscan/internal/domain"
	"github.com/dexlab-run/mintscan/internal/solana"
)

func TestPoolWatcher_EmitsBaseMintPairFirst(t *testing.T) {
	ws := &fakeWSClient{}
	sink := &collectingSink{}
	w, err := NewPoolWatcher(PoolWatcherOptions{
		Client:   ws,
		Sink:     sink,
		Programs: []string{RaydiumAMMV4},
	})
	if err != nil {
		t.Fatalf("NewPoolWatcher: %v", err)
	}
	stop := runProducer(t, w.Run, ws)

	ws.push(0, solana.LogNotification{
		Signature: "poolsig",
		Logs: []string{
			"Program log: Instruction: InitializePool",
			"Program log: " + freshMint + " " + WSOL,
			"Program log: reserves: 1000 2000",
		},
	})
	stop()

	if len(sink.cands) != 1 {
		t.Fatalf("candidates = %d, want 1", len(sink.cands))
	}
	got := sink.cands[0]
	if got.Mint != freshMint || got.Signature != "poolsig" {
		t.Errorf("candidate = %+v", got)
	}
	if got.Source != domain.SourceRaydium {
		t.Errorf("source = %v, want raydium", got.Source)
	}
	if w.Emitted() != 1 || w.SeenCount() != 1 {
		t.Errorf("emitted=%d seen=%d", w.Emitted(), w.SeenCount())
	}
}

func TestPoolWatcher_DedupPerLifetime(t *testing.T) {
	ws := &fakeWSClient{}
	sink := &collectingSink{}
	w, _ := NewPoolWatcher(PoolWatcherOptions{Client: ws, Sink: sink, Programs: []string{OrcaWhirlpool}})
	stop := runProducer(t, w.Run, ws)

	notif := solana.LogNotification{Logs: []string{
		"Program log: add_liquidity",
		"Program log: " + freshMint + " " + USDC,
	}}
	ws.push(0, notif)
	ws.push(0, notif)
	stop()

	if len(sink.cands) != 1 {
		t.Errorf("candidates = %d, want the base emitted once", len(sink.cands))
	}
	if sink.cands[0].Source != domain.SourceOrca {
		t.Errorf("source = %v", sink.cands[0].Source)
	}
}

func TestPoolWatcher_IgnoresSwapsAndQuotelessPools(t *testing.T) {
	ws := &fakeWSClient{}
	sink := &collectingSink{}
	w, _ := NewPoolWatcher(PoolWatcherOptions{Client: ws, Sink: sink, Programs: []string{PumpFun}})
	stop := runProducer(t, w.Run, ws)

	// Swap bursts carry addresses but no pool marker.
	ws.push(0, solana.LogNotification{Logs: []string{
		"Program log: Instruction: Swap",
		"Program log: " + freshMint + " " + WSOL,
	}})
	// Pool marker without an allowed quote mint.
	ws.push(0, solana.LogNotification{Logs: []string{
		"Program log: Instruction: CreatePool",
		"Program log: " + freshMint,
	}})
	stop()

	if len(sink.cands) != 0 {
		t.Errorf("candidates = %+v, want none", sink.cands)
	}
}

func TestNewPoolWatcher_RequiresClientAndSink(t *testing.T) {
	if _, err := NewPoolWatcher(PoolWatcherOptions{Sink: &collectingSink{}}); err == nil {
		t.Error("missing client should fail")
	}
	if _, err := NewPoolWatcher(PoolWatcherOptions{Client: &fakeWSClient{}}); err == nil {
		t.Error("missing sink should fail")
	}
}
