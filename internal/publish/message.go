package publish

import (
	"fmt"
	"strings"
	"time"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// FormatAlert renders the chat message for a qualified token. updated
// marks re-publications after the cooldown or a symbol upgrade.
func FormatAlert(s *domain.Summary, updated bool) string {
	var b strings.Builder

	header := "🆕 *New token*"
	if updated {
		header = "🔄 *Token update*"
	}
	fmt.Fprintf(&b, "%s — *%s*\n", header, escapeMarkdown(displaySymbol(s)))
	fmt.Fprintf(&b, "`%s`\n\n", shortMint(s.Mint))

	info := s.Market
	if info != nil {
		if price, ok := info.Float(domain.KeyPriceUSD); ok {
			fmt.Fprintf(&b, "💵 Price: $%s\n", formatPrice(price))
		}
		if mc, ok := info.Float(domain.KeyMarketCap); ok {
			fmt.Fprintf(&b, "🏦 MC: $%s\n", formatCompact(mc))
		} else if fdv, ok := info.Float(domain.KeyFDV); ok {
			fmt.Fprintf(&b, "🏦 FDV: $%s\n", formatCompact(fdv))
		}
		if vol, ok := info.Float(domain.KeyVolume24hUSD); ok {
			fmt.Fprintf(&b, "📊 Vol 24h: $%s\n", formatCompact(vol))
		}
		if liq, ok := info.Float(domain.KeyLiquidityUSD); ok {
			fmt.Fprintf(&b, "💧 LP: $%s\n", formatCompact(liq))
		}
		if createdMs, ok := info.Float(domain.KeyPairCreatedAt); ok && createdMs > 0 {
			age := time.Since(time.UnixMilli(int64(createdMs)))
			if age > 0 {
				fmt.Fprintf(&b, "⏱ Age: %s\n", formatAge(age))
			}
		}
		if buyers, ok := info.Int(domain.KeyBuyers30m); ok {
			fmt.Fprintf(&b, "🛒 Buyers 30m: %d\n", buyers)
		}
		if holders, ok := info.Int(domain.KeyHolders); ok {
			fmt.Fprintf(&b, "👥 Holders: %d\n", holders)
		}
		if athPct, ok := info.Float(domain.KeyATHChangePct); ok {
			fmt.Fprintf(&b, "📈 From ATH: %+.1f%%\n", athPct)
		}
		if sources, ok := info.Metadata[domain.KeySourcesOK].([]string); ok && len(sources) > 1 {
			fmt.Fprintf(&b, "🔗 Confluence: %s\n", strings.Join(sources, ", "))
		}
	}

	fmt.Fprintf(&b, "\n⭐ Score: %.0f", s.Score)
	fmt.Fprintf(&b, "  ·  %s\n\n", s.Source)

	if info != nil && info.PairAddress != "" {
		fmt.Fprintf(&b, "[DexScreener](https://dexscreener.com/solana/%s) · ", info.PairAddress)
	} else {
		fmt.Fprintf(&b, "[DexScreener](https://dexscreener.com/solana/%s) · ", s.Mint)
	}
	fmt.Fprintf(&b, "[Solscan](https://solscan.io/token/%s)", s.Mint)

	return b.String()
}

// FormatSymbolUpdate renders the short follow-up sent when a
// placeholder symbol resolves after publication.
func FormatSymbolUpdate(mint string, rs domain.ResolvedSymbol) string {
	return fmt.Sprintf("🔤 Symbol resolved — *%s* (%.0f%%)\n`%s`",
		escapeMarkdown(rs.Symbol), rs.Confidence*100, shortMint(mint))
}

// FormatConfluenceUpdate renders the notice sent when multiple
// providers agree on a published token after a symbol resolution.
func FormatConfluenceUpdate(mint string, sources []string) string {
	return fmt.Sprintf("🔗 Confluence update — %s\n`%s`",
		strings.Join(sources, ", "), shortMint(mint))
}

func displaySymbol(s *domain.Summary) string {
	if s.Symbol != "" {
		return s.Symbol
	}
	return domain.PlaceholderSymbol(s.Mint)
}

// shortMint renders the first and last 8 characters of a mint address.
func shortMint(mint string) string {
	if len(mint) <= 16 {
		return mint
	}
	return mint[:8] + "..." + mint[len(mint)-8:]
}

// formatPrice picks a precision suited to the magnitude; micro-cap
// prices need many more decimals to be readable.
func formatPrice(p float64) string {
	switch {
	case p >= 1:
		return fmt.Sprintf("%.2f", p)
	case p >= 0.01:
		return fmt.Sprintf("%.4f", p)
	case p >= 0.0001:
		return fmt.Sprintf("%.6f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}

// formatCompact renders a USD amount with K/M/B suffixes.
func formatCompact(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func formatAge(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	case d >= time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// escapeMarkdown neutralizes the characters Telegram's legacy Markdown
// mode treats as formatting.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")
	return r.Replace(s)
}
