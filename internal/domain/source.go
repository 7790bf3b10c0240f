package domain

// Source identifies which producer discovered a candidate.
type Source string

const (
	SourceHeliusLogs         Source = "helius_logs"
	SourceRaydium            Source = "raydium"
	SourceOrca               Source = "orca"
	SourcePumpFun            Source = "pumpfun"
	SourceLookbackNewListing Source = "lookback_new_listing"
	SourceLookbackTrending   Source = "lookback_trending"
	SourceExternal           Source = "external"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a known value.
func (s Source) IsValid() bool {
	switch s {
	case SourceHeliusLogs, SourceRaydium, SourceOrca, SourcePumpFun,
		SourceLookbackNewListing, SourceLookbackTrending, SourceExternal:
		return true
	}
	return false
}

// IsLivePool reports whether the source is a live AMM pool watcher.
// Candidates from live pool watchers qualify for relaxed new-pool gates.
func (s Source) IsLivePool() bool {
	return s == SourceRaydium || s == SourceOrca || s == SourcePumpFun
}
