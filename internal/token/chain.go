package token

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

type Chain string

const (
	ChainSolana   Chain = "solana"
	ChainBSC      Chain = "bsc"
	ChainEthereum Chain = "ethereum"
)

func AllChains() []Chain {
	return []Chain{ChainSolana, ChainBSC, ChainEthereum}
}

func ParseChain(raw string) (Chain, error) {
	switch Chain(strings.ToLower(strings.TrimSpace(raw))) {
	case ChainSolana:
		return ChainSolana, nil
	case ChainBSC:
		return ChainBSC, nil
	case ChainEthereum:
		return ChainEthereum, nil
	default:
		return "", fmt.Errorf("unsupported chain %q", raw)
	}
}

func (c Chain) Valid() bool {
	switch c {
	case ChainSolana, ChainBSC, ChainEthereum:
		return true
	}
	return false
}

// ValidAddress reports whether addr is plausibly a token address on c.
// Solana mints are base58-encoded 32-byte public keys; BSC and Ethereum
// use 20-byte hex addresses with an 0x prefix.
func ValidAddress(c Chain, addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	switch c {
	case ChainSolana:
		raw, err := base58.Decode(addr)
		if err != nil {
			return false
		}
		return len(raw) == 32
	case ChainBSC, ChainEthereum:
		if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
			return false
		}
		for _, ch := range addr[2:] {
			if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') && (ch < 'A' || ch > 'F') {
				return false
			}
		}
		return true
	default:
		return false
	}
}
