package txn

import (
	"math"

	"github.com/brojonat/swapexport/service/helius"
	"github.com/brojonat/swapexport/service/solana"
)

// priceKeys are the per-unit USD price fields seen on transfer records.
var priceKeys = []string{"usdTokenPrice", "usdPrice"}

func unitPrice(transfer map[string]any) (float64, bool) {
	for _, key := range priceKeys {
		if p, ok := helius.Number(transfer, key); ok {
			return p, true
		}
	}
	return 0, false
}

// valueRule derives a USD value from a record, returning 0 when it cannot.
type valueRule func(raw helius.RawTransaction) float64

// value returns the first non-zero result of the rules, in priority order.
func (n *Normalizer) value(raw helius.RawTransaction) float64 {
	rules := []valueRule{
		pricedTokenValue,
		pricedNativeValue,
		n.estimatedTransferValue,
		n.estimatedFeeValue,
	}
	for _, rule := range rules {
		if v := rule(raw); v > 0 && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}

// pricedTokenValue sums amount x price over token transfers that carry a price.
func pricedTokenValue(raw helius.RawTransaction) float64 {
	var total float64
	for _, transfer := range helius.Objects(raw, "tokenTransfers") {
		price, ok := unitPrice(transfer)
		if !ok {
			continue
		}
		total += tokenAmount(transfer) * math.Abs(price)
	}
	return total
}

// pricedNativeValue sums SOL amount x price over native transfers that carry a price.
func pricedNativeValue(raw helius.RawTransaction) float64 {
	var total float64
	for _, transfer := range helius.Objects(raw, "nativeTransfers") {
		price, ok := unitPrice(transfer)
		if !ok {
			continue
		}
		total += solana.LamportsToSOL(math.Abs(helius.NumberOrZero(transfer, "amount"))) * math.Abs(price)
	}
	return total
}

func hasExplicitPrice(raw helius.RawTransaction) bool {
	for _, key := range []string{"tokenTransfers", "nativeTransfers"} {
		for _, transfer := range helius.Objects(raw, key) {
			if _, ok := unitPrice(transfer); ok {
				return true
			}
		}
	}
	return false
}

// estimatedTransferValue values every transfer at the placeholder prices.
// It only applies when the record carries no price at all.
func (n *Normalizer) estimatedTransferValue(raw helius.RawTransaction) float64 {
	if hasExplicitPrice(raw) {
		return 0
	}
	var total float64
	for _, transfer := range helius.Objects(raw, "tokenTransfers") {
		total += tokenAmount(transfer) * n.estimates.TokenMultiplier
	}
	for _, transfer := range helius.Objects(raw, "nativeTransfers") {
		lamports := math.Abs(helius.NumberOrZero(transfer, "amount"))
		total += solana.LamportsToSOL(lamports) * n.estimates.NativePriceUSD
	}
	return total
}

// estimatedFeeValue values the transaction fee at the placeholder SOL price.
func (n *Normalizer) estimatedFeeValue(raw helius.RawTransaction) float64 {
	lamports := math.Abs(helius.NumberOrZero(raw, "fee"))
	return solana.LamportsToSOL(lamports) * n.estimates.NativePriceUSD
}
