package pipeline

import (
	"math"
	"strings"
	"time"

	"github.com/dexlab-run/mintscan/internal/config"
	"github.com/dexlab-run/mintscan/internal/discovery"
	"github.com/dexlab-run/mintscan/internal/domain"
)

// Diagnostic note tags attached to every qualification outcome.
const (
	NoteRiskDrop           = "risk_drop"
	NoteBlacklisted        = "blacklisted"
	NoteBluechip           = "bluechip_non_target"
	NotePlaceholderStrict  = "placeholder_symbol_strict"
	NotePlaceholderPenalty = "placeholder_symbol_penalty"
	NoteLiquidityLow       = "liquidity_low"
	NoteVolumeLow          = "volume_low"
	NoteUtilOutOfBounds    = "util_out_of_bounds"
	NoteAgeTooFresh        = "age_too_fresh"
	NoteStalePool          = "stale_pool"
	NoteTrades24Low        = "trades24_low"
	NoteFDVSanityFail      = "fdv_sanity_fail"
	NoteLightPublish       = "light_publish_new_pool"
	NoteDexOK              = "dex_ok"
	NoteBuyersOK           = "buyers_ok"
	NoteBuyersLow          = "buyers_low"
	NoteJupiterBonus       = "jupiter_bonus"
	NotePumpBonus          = "pump_bonus"
	NoteScorePassed        = "score_threshold_passed"
	NoteScoreBelow         = "score_below_threshold"
)

// newPoolGraceAge is the max age at which a live-pool candidate with no
// market data yet qualifies for the relaxed gate set.
const newPoolGraceAge = 2 * time.Minute

// bluechipSymbols are never a target, whatever their metrics say.
var bluechipSymbols = map[string]struct{}{
	"USDC": {}, "USDT": {}, "WSOL": {}, "SOL": {},
}

var bluechipMints = map[string]struct{}{
	discovery.WSOL: {}, discovery.USDC: {}, discovery.USDT: {},
}

// Verdict is the full outcome of one qualification pass.
type Verdict struct {
	Decision domain.Decision
	Score    float64
	Notes    []string
}

func (v *Verdict) note(tag string) {
	for _, n := range v.Notes {
		if n == tag {
			return
		}
	}
	v.Notes = append(v.Notes, tag)
}

// Qualifier applies the hard gates and the weighted score. It is a pure
// function of its inputs apart from the clock.
type Qualifier struct {
	gates config.Gates
	now   func() time.Time
}

// NewQualifier builds a qualifier over the configured gate thresholds.
func NewQualifier(gates config.Gates) *Qualifier {
	return &Qualifier{gates: gates, now: time.Now}
}

// Decide runs hard gates first, then the weighted score. Identical
// inputs produce identical verdicts modulo the time-derived age and
// trade-staleness values.
func (q *Qualifier) Decide(cand domain.Candidate, info *domain.DexInfo, symbol string, rugAlert, blacklisted bool) Verdict {
	v := Verdict{Decision: domain.DecisionDrop}

	if rugAlert || blacklisted {
		v.note(NoteRiskDrop)
		if blacklisted {
			v.note(NoteBlacklisted)
		}
		return v
	}

	if q.isBluechip(cand.Mint, symbol) {
		v.note(NoteBluechip)
		return v
	}

	placeholder := q.isPlaceholder(symbol)
	if placeholder && q.gates.StrictPlaceholder {
		v.note(NotePlaceholderStrict)
		return v
	}

	liq, hasLiq := info.Float(domain.KeyLiquidityUSD)
	vol, hasVol := info.Float(domain.KeyVolume24hUSD)
	ageMin, hasAge := q.pairAge(info)

	// Brand-new pools from a live watcher have no market data yet; the
	// usual floors would reject every one of them, so they ride a
	// relaxed gate set and score on defaults.
	lightPass := !hasLiq && !hasVol && cand.Source.IsLivePool() && q.isFresh(cand, ageMin, hasAge)

	if info.Status != domain.StatusOK && !lightPass {
		v.note("dex_" + string(info.Status))
		return v
	}

	if !lightPass {
		if hasLiq && liq < q.gates.MinLiquidityUSD {
			v.note(NoteLiquidityLow)
			return v
		}
		if hasVol && vol < q.gates.MinVolume24hUSD {
			v.note(NoteVolumeLow)
			return v
		}
		if hasLiq && hasVol && liq > 0 {
			util := vol / liq
			// Boundary values pass.
			if util < q.gates.UtilMin || util > q.gates.UtilMax {
				v.note(NoteUtilOutOfBounds)
				return v
			}
		}
		if hasAge && ageMin < q.gates.MinAgeMin {
			v.note(NoteAgeTooFresh)
			return v
		}
		if lastTrade, ok := info.Float(domain.KeyLastTradeMin); ok && lastTrade > q.gates.PoolMaxLastTradeMin {
			v.note(NoteStalePool)
			return v
		}
		if trades, ok := info.Int(domain.KeyTrades24h); ok && int(trades) < q.gates.PoolMinTrades24h {
			v.note(NoteTrades24Low)
			return v
		}
		if q.gates.EnableFDVSanity {
			if tag, fail := q.fdvSanity(info); fail {
				v.note(tag)
				return v
			}
		}
	} else {
		v.note(NoteLightPublish)
	}

	buyers, hasBuyers := info.Int(domain.KeyBuyers30m)
	if hasBuyers && int(buyers) < q.gates.MinBuyers30m && !q.gates.Buyers30mSoftMode {
		v.note(NoteBuyersLow)
		return v
	}

	// Gates passed; score the candidate.
	if info.Status == domain.StatusOK {
		v.note(NoteDexOK)
	}
	if hasBuyers {
		if int(buyers) >= q.gates.MinBuyers30m {
			v.note(NoteBuyersOK)
		} else {
			v.note(NoteBuyersLow)
		}
	}

	score := scoreDex(liq, hasLiq, vol, hasVol, ageMin, hasAge)
	score += scoreDemand(buyers, hasBuyers)
	score += scoreStructure(info, symbol, placeholder)
	score += scoreMomentum(info.PriceChange())

	if route, ok := info.Metadata[domain.KeyJupiterRoute].(bool); ok && route {
		score += 5
		v.note(NoteJupiterBonus)
	}
	if strings.Contains(strings.ToLower(cand.Source.String()), "pump") {
		score += pumpBonus(info.PriceChange())
		v.note(NotePumpBonus)
	}
	if placeholder {
		score -= q.gates.PlaceholderPenalty
		v.note(NotePlaceholderPenalty)
	}
	if hasBuyers && int(buyers) < q.gates.MinBuyers30m {
		score -= 3
	}

	v.Score = clamp(score, 0, 100)
	if v.Score >= q.gates.MinPublishScore {
		v.Decision = domain.DecisionPublish
		v.note(NoteScorePassed)
	} else {
		v.note(NoteScoreBelow)
	}
	return v
}

func (q *Qualifier) isBluechip(mint, symbol string) bool {
	if _, ok := bluechipMints[mint]; ok {
		return true
	}
	_, ok := bluechipSymbols[strings.ToUpper(symbol)]
	return ok
}

// isPlaceholder treats synthetic TOKEN_ symbols and symbols outside the
// configured length bounds as unresolved.
func (q *Qualifier) isPlaceholder(symbol string) bool {
	if domain.IsPlaceholderSymbol(symbol) {
		return true
	}
	if q.gates.MinSymbolLen > 0 && len(symbol) < q.gates.MinSymbolLen {
		return true
	}
	if q.gates.MaxSymbolLen > 0 && len(symbol) > q.gates.MaxSymbolLen {
		return true
	}
	return false
}

// pairAge derives the pair age in minutes from pair_created_at.
func (q *Qualifier) pairAge(info *domain.DexInfo) (float64, bool) {
	createdMs, ok := info.Float(domain.KeyPairCreatedAt)
	if !ok || createdMs <= 0 {
		return 0, false
	}
	age := q.now().Sub(time.UnixMilli(int64(createdMs))).Minutes()
	if age < 0 {
		age = 0
	}
	return age, true
}

// isFresh reports whether the candidate is young enough for the
// relaxed new-pool gates, preferring the pair age over the receive
// time.
func (q *Qualifier) isFresh(cand domain.Candidate, ageMin float64, hasAge bool) bool {
	if hasAge {
		return ageMin < newPoolGraceAge.Minutes()
	}
	if cand.ReceivedAt.IsZero() {
		return false
	}
	return q.now().Sub(cand.ReceivedAt) < newPoolGraceAge
}

// fdvSanity cross-checks the reported FDV against price*supply.
func (q *Qualifier) fdvSanity(info *domain.DexInfo) (string, bool) {
	price, okP := info.Float(domain.KeyPriceUSD)
	supply, okS := info.Float(domain.KeySupply)
	fdv, okF := info.Float(domain.KeyFDV)
	if !okP || !okS || !okF || price <= 0 || supply <= 0 {
		return "", false
	}
	implied := price * supply
	if math.Abs(implied-fdv)/implied > q.gates.FDVSanityTolerance {
		return NoteFDVSanityFail, true
	}
	return "", false
}

// scoreDex rewards pool depth, turnover and maturity. Tiers are coarse
// on purpose: a thin fresh pool should not outscore the structure and
// momentum components.
func scoreDex(liq float64, hasLiq bool, vol float64, hasVol bool, ageMin float64, hasAge bool) float64 {
	pts := 0.0

	switch {
	case !hasLiq:
		pts += 2
	case liq >= 50_000:
		pts += 15
	case liq >= 20_000:
		pts += 11
	case liq >= 10_000:
		pts += 8
	case liq >= 5_000:
		pts += 5
	case liq >= 1_000:
		pts += 2
	default:
		pts++
	}

	switch {
	case !hasVol:
		pts += 2
	case vol >= 100_000:
		pts += 12
	case vol >= 50_000:
		pts += 10
	case vol >= 20_000:
		pts += 7
	case vol >= 5_000:
		pts += 4
	case vol >= 1_000:
		pts += 2
	case vol >= 100:
		pts++
	}

	if hasLiq && hasVol && liq > 0 {
		util := vol / liq
		if util >= 0.5 && util <= 3.0 {
			pts += 2
		} else {
			pts++
		}
	} else {
		pts++
	}

	switch {
	case !hasAge:
		pts++
	case ageMin >= 120:
		pts += 6
	case ageMin >= 60:
		pts += 4
	case ageMin >= 30:
		pts += 2
	case ageMin >= 10:
		pts++
	}

	return clamp(pts, 0, 45)
}

// scoreDemand ladders the 30-minute distinct buyer count.
func scoreDemand(buyers int64, present bool) float64 {
	if !present {
		return 8
	}
	switch {
	case buyers >= 40:
		return 25
	case buyers >= 25:
		return 20
	case buyers >= 15:
		return 15
	case buyers >= 7:
		return 12
	case buyers >= 3:
		return 8
	default:
		return 5
	}
}

// scoreStructure rewards resolved identity, holder distribution and
// multi-source confluence.
func scoreStructure(info *domain.DexInfo, symbol string, placeholder bool) float64 {
	pts := 20.0
	if symbol != "" && !placeholder {
		pts += 8
	} else {
		pts += 3
	}

	if top5, ok := info.Float(domain.KeyTop5HolderPct); ok {
		switch {
		case top5 >= 70:
			pts -= 3
		case top5 < 30:
			pts += 3
		}
	}
	if fresh, ok := info.Float(domain.KeyFreshHolderPct); ok {
		switch {
		case fresh >= 60:
			pts -= 2
		case fresh <= 20:
			pts += 2
		}
	}
	if cg, ok := info.Float(domain.KeyCoingeckoScore); ok {
		pts += math.Min(2, cg/50)
	}
	if _, ok := info.String(domain.KeyCoingeckoSymbol); ok {
		pts += 3
	}

	if sources, ok := info.Metadata[domain.KeySourcesOK].([]string); ok {
		switch {
		case len(sources) >= 3:
			pts += 8
		case len(sources) == 2:
			pts += 5
		}
	}

	return clamp(pts, 0, 30)
}

// scoreMomentum weighs short-window price change, m5 heaviest.
func scoreMomentum(pc map[string]float64) float64 {
	pts := 8.0

	if m5, ok := pc["m5"]; ok {
		switch {
		case m5 >= 10:
			pts += 12
		case m5 >= 5:
			pts += 8
		case m5 >= 0:
			pts += 5
		case m5 >= -10:
			pts += 2
		default:
			pts -= 4
		}
	}
	if h1, ok := pc["h1"]; ok {
		switch {
		case h1 >= 20:
			pts += 8
		case h1 >= 10:
			pts += 6
		case h1 >= 0:
			pts += 3
		default:
			pts -= 3
		}
	}

	return clamp(pts, 0, 25)
}

// pumpBonus adds extra weight for pump.fun sourced candidates with
// strong short momentum.
func pumpBonus(pc map[string]float64) float64 {
	bonus := 3.0
	if pc["m5"] >= 10 {
		bonus += 5
	}
	if pc["h1"] >= 20 {
		bonus += 4
	}
	return bonus
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
