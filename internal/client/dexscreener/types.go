package dexscreener

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Number accepts the API's mixed numeric encodings: priceUsd comes back as a
// string, volume and liquidity as JSON numbers, and any field may be null.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "" {
			*n = 0
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %q", s)
		}
		*n = Number(parsed)
		return nil
	}
	return fmt.Errorf("invalid number: %s", string(b))
}

func (n *Number) Float() *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}

type TokenInfo struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type TxnCount struct {
	Buys  *int `json:"buys"`
	Sells *int `json:"sells"`
}

type TxnWindows struct {
	M5  *TxnCount `json:"m5"`
	H1  *TxnCount `json:"h1"`
	H6  *TxnCount `json:"h6"`
	H24 *TxnCount `json:"h24"`
}

type VolumeWindows struct {
	M5  *Number `json:"m5"`
	H1  *Number `json:"h1"`
	H6  *Number `json:"h6"`
	H24 *Number `json:"h24"`
}

type PriceChangeWindows struct {
	M5  *Number `json:"m5"`
	H1  *Number `json:"h1"`
	H6  *Number `json:"h6"`
	H24 *Number `json:"h24"`
}

type Liquidity struct {
	USD   *Number `json:"usd"`
	Base  *Number `json:"base"`
	Quote *Number `json:"quote"`
}

// Pair is one DEX pair as reported by the API. Pointer fields distinguish
// "field absent" from "value is zero".
type Pair struct {
	ChainID       string              `json:"chainId"`
	DexID         string              `json:"dexId"`
	URL           string              `json:"url"`
	PairAddress   string              `json:"pairAddress"`
	BaseToken     TokenInfo           `json:"baseToken"`
	QuoteToken    TokenInfo           `json:"quoteToken"`
	PriceNative   *Number             `json:"priceNative"`
	PriceUSD      *Number             `json:"priceUsd"`
	Txns          *TxnWindows         `json:"txns"`
	Volume        *VolumeWindows      `json:"volume"`
	PriceChange   *PriceChangeWindows `json:"priceChange"`
	Liquidity     *Liquidity          `json:"liquidity"`
	FDV           *Number             `json:"fdv"`
	MarketCap     *Number             `json:"marketCap"`
	PairCreatedAt *int64              `json:"pairCreatedAt"`
	Holders       *int                `json:"holders"`
}

func parsePairs(body []byte) ([]Pair, error) {
	var resp struct {
		Pairs []Pair          `json:"pairs"`
		Pair  json.RawMessage `json:"pair"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode pairs response: %w", err)
	}
	if resp.Pairs != nil {
		return resp.Pairs, nil
	}
	// Single-pair endpoints return {"pair": {...}} instead of a list.
	if len(resp.Pair) > 0 && string(resp.Pair) != "null" {
		var single Pair
		if err := json.Unmarshal(resp.Pair, &single); err != nil {
			return nil, fmt.Errorf("failed to decode pair: %w", err)
		}
		return []Pair{single}, nil
	}
	return []Pair{}, nil
}
