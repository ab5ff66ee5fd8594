package discovery

import (
	"time"

	"tokenwatch/internal/client/dexscreener"
	"tokenwatch/internal/token"
)

// NormalizePair converts one raw pair into the uniform snapshot the pipeline
// stages consume. Identity fields (chain, address, name) are required;
// numeric fields stay absent (nil) when the source did not report them, so
// downstream filters can tell "no data" from "zero".
func NormalizePair(chain token.Chain, pair dexscreener.Pair, now time.Time) (token.Snapshot, error) {
	if !chain.Valid() {
		return token.Snapshot{}, &token.MalformedSnapshotError{Field: "chain", Reason: "unknown chain " + string(chain)}
	}
	if pair.BaseToken.Address == "" {
		return token.Snapshot{}, &token.MalformedSnapshotError{Field: "address", Reason: "base token address missing"}
	}
	if pair.BaseToken.Name == "" {
		return token.Snapshot{}, &token.MalformedSnapshotError{Field: "name", Reason: "base token name missing"}
	}

	snap := token.Snapshot{
		Chain:       chain,
		Address:     pair.BaseToken.Address,
		Name:        pair.BaseToken.Name,
		Symbol:      pair.BaseToken.Symbol,
		PairAddress: pair.PairAddress,
		PageURL:     pair.URL,
		PriceUSD:    pair.PriceUSD.Float(),
		HolderCount: pair.Holders,
		FetchedAt:   now,
	}

	if pair.PairCreatedAt != nil && *pair.PairCreatedAt > 0 {
		created := time.UnixMilli(*pair.PairCreatedAt).UTC()
		snap.PairCreatedAt = &created
	}
	if pair.Liquidity != nil {
		snap.LiquidityUSD = pair.Liquidity.USD.Float()
	}
	snap.MarketCapUSD = marketCap(pair)
	if pair.Volume != nil {
		snap.VolumeUSD1h = pair.Volume.H1.Float()
		snap.VolumeUSD6h = pair.Volume.H6.Float()
		snap.VolumeUSD24h = pair.Volume.H24.Float()
	}
	if pair.PriceChange != nil {
		snap.PriceChange1h = pair.PriceChange.H1.Float()
		snap.PriceChange6h = pair.PriceChange.H6.Float()
		snap.PriceChange24h = pair.PriceChange.H24.Float()
	}
	if pair.Txns != nil && pair.Txns.H24 != nil {
		snap.Buys24h = pair.Txns.H24.Buys
		snap.Sells24h = pair.Txns.H24.Sells
	}
	return snap, nil
}

// marketCap prefers fully-diluted valuation and falls back to the reported
// market cap, mirroring how the upstream screener ranks pairs.
func marketCap(pair dexscreener.Pair) *float64 {
	if pair.FDV != nil && *pair.FDV != 0 {
		return pair.FDV.Float()
	}
	if pair.MarketCap != nil {
		return pair.MarketCap.Float()
	}
	if pair.FDV != nil {
		return pair.FDV.Float()
	}
	return nil
}
