package notifier

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	tgmodels "github.com/go-telegram/bot/models"

	"tokenwatch/internal/token"
)

func formatAlertMessage(a Alert) string {
	snap := a.Snapshot
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", tierBanner(a.Tier))
	fmt.Fprintf(&b, "📊 <b>%s (%s)</b>\n", html.EscapeString(snap.Name), html.EscapeString(snap.Symbol))
	fmt.Fprintf(&b, "🔗 <b>Chain:</b> %s\n", strings.ToUpper(string(snap.Chain)))
	fmt.Fprintf(&b, "💰 <b>Price:</b> %s\n", price(snap.PriceUSD))
	fmt.Fprintf(&b, "📈 <b>24h Volume:</b> %s\n", usd(snap.VolumeUSD24h))
	fmt.Fprintf(&b, "💧 <b>Liquidity:</b> %s\n", usd(snap.LiquidityUSD))
	fmt.Fprintf(&b, "🏦 <b>Market Cap:</b> %s\n", usd(snap.MarketCapUSD))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s <b>Risk Score:</b> %.1f/100\n", riskEmoji(a.RiskScore), a.RiskScore)
	fmt.Fprintf(&b, "🏷️ <b>Tax:</b> %.1f%%\n", a.TaxPercentage)
	fmt.Fprintf(&b, "\n<code>%s</code>", html.EscapeString(snap.Address))

	if len(a.Labels) > 0 {
		tags := make([]string, 0, len(a.Labels))
		for _, l := range a.Labels {
			tags = append(tags, "#"+l.Name)
		}
		fmt.Fprintf(&b, "\n\n%s", strings.Join(tags, " "))
	}
	return b.String()
}

func tierBanner(t token.Tier) string {
	switch t {
	case token.TierPremiumGem:
		return "👑 <b>PREMIUM GEM</b>"
	case token.TierRealGem:
		return "💎 <b>REAL GEM</b>"
	case token.TierMiniGem:
		return "✨ <b>MINI GEM</b>"
	case token.TierMediumRisk:
		return "⚠️ <b>MEDIUM RISK</b>"
	case token.TierUltraRisk:
		return "☠️ <b>ULTRA RISK</b>"
	default:
		return "🚨 <b>TOKEN ALERT</b>"
	}
}

func riskEmoji(score float64) string {
	switch {
	case score > 70:
		return "🔴"
	case score > 40:
		return "🟡"
	default:
		return "🟢"
	}
}

// alertKeyboard builds the action buttons: the chain's swap page, a
// DexTools chart for the pair, the Dexscreener page when known, and the
// copy/dismiss shortcuts.
func alertKeyboard(snap token.Snapshot) *tgmodels.InlineKeyboardMarkup {
	pair := snap.PairAddress
	if pair == "" {
		pair = snap.Address
	}
	var rows [][]tgmodels.InlineKeyboardButton
	switch snap.Chain {
	case token.ChainSolana:
		rows = append(rows,
			urlRow("🔄 Buy on Raydium", "https://raydium.io/swap?inputCurrency=sol&outputCurrency="+snap.Address),
			urlRow("📊 DexTools", "https://www.dextools.io/app/solana/pair-explorer/"+pair),
		)
	case token.ChainBSC:
		rows = append(rows,
			urlRow("🥞 Buy on PancakeSwap", "https://pancakeswap.finance/swap?outputCurrency="+snap.Address),
			urlRow("📊 DexTools", "https://www.dextools.io/app/bnb/pair-explorer/"+pair),
		)
	case token.ChainEthereum:
		rows = append(rows,
			urlRow("🦄 Buy on Uniswap", "https://app.uniswap.org/#/swap?outputCurrency="+snap.Address),
			urlRow("📊 DexTools", "https://www.dextools.io/app/ether/pair-explorer/"+pair),
		)
	}
	if snap.PageURL != "" {
		rows = append(rows, urlRow("📈 View Chart", snap.PageURL))
	}
	rows = append(rows, []tgmodels.InlineKeyboardButton{
		{Text: "📋 Copy Address", CallbackData: "copy_" + snap.Address},
		{Text: "❌ Dismiss", CallbackData: "dismiss"},
	})
	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func urlRow(text, url string) []tgmodels.InlineKeyboardButton {
	return []tgmodels.InlineKeyboardButton{{Text: text, URL: url}}
}

func price(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("$%.8f", *v)
}

func usd(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return "$" + comma(*v)
}

// comma renders a non-negative amount with thousands separators and no
// decimals.
func comma(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
