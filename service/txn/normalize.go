package txn

import (
	"io"
	"log/slog"
	"math"

	"github.com/brojonat/swapexport/service/helius"
	"github.com/brojonat/swapexport/service/metrics"
	"github.com/brojonat/swapexport/service/solana"
)

// Estimates are the placeholder prices used to value records that carry no
// USD prices at all. They are rough guesses, not market data, and any value
// derived from them is an estimate.
type Estimates struct {
	// NativePriceUSD is the assumed USD price of one SOL.
	NativePriceUSD float64
	// TokenMultiplier is the assumed USD value of one unit of any SPL token.
	TokenMultiplier float64
}

// DefaultEstimates returns the built-in placeholder prices.
func DefaultEstimates() Estimates {
	return Estimates{NativePriceUSD: 100, TokenMultiplier: 0.1}
}

// Normalizer maps raw Helius records to canonical transactions.
type Normalizer struct {
	estimates Estimates
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewNormalizer creates a Normalizer. m and logger may be nil.
func NewNormalizer(estimates Estimates, m *metrics.Metrics, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{estimates: estimates, metrics: m, logger: logger}
}

// NormalizeAll normalizes every record, preserving order.
func (n *Normalizer) NormalizeAll(raws []helius.RawTransaction) []Transaction {
	out := make([]Transaction, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.Normalize(raw))
	}
	return out
}

// Normalize never fails: fields that cannot be resolved are left empty or zero.
func (n *Normalizer) Normalize(raw helius.RawTransaction) Transaction {
	t := Transaction{
		Signature:    raw.Signature(),
		Timestamp:    max(raw.TimestampOrZero(), 0),
		ActivityType: helius.Str(raw, "type"),
		Protocol:     helius.Str(raw, "source"),
		Description:  helius.Str(raw, "description"),
		Mints:        transferMints(raw),
	}

	in, out := resolveLegs(raw)
	if in != nil {
		t.TokenIn, t.AmountIn = in.token, in.amount
	} else {
		n.degraded(t.Signature, "token_in")
	}
	if out != nil {
		t.TokenOut, t.AmountOut = out.token, out.amount
	} else {
		n.degraded(t.Signature, "token_out")
	}

	t.ValueUSD = n.value(raw)
	if t.ValueUSD == 0 {
		n.degraded(t.Signature, "value_usd")
	}

	n.metrics.RecordTransactionNormalized()
	return t
}

func (n *Normalizer) degraded(signature, field string) {
	n.logger.Debug("field unresolved, using default", "signature", signature, "field", field)
	n.metrics.RecordNormalizationDegraded(field)
}

// leg is one side of a swap.
type leg struct {
	token  string
	amount float64
}

// legRule extracts the input and output legs it can find; either may be nil.
type legRule func(raw helius.RawTransaction, feePayer string) (in, out *leg)

// legRules are tried in order; the first rule that yields a leg wins for that side.
var legRules = []legRule{
	swapEventNativeLegs,
	innerSwapLegs,
	tokenTransferLegs,
	nativeTransferLegs,
}

func resolveLegs(raw helius.RawTransaction) (in, out *leg) {
	feePayer := helius.Str(raw, "feePayer")
	for _, rule := range legRules {
		ruleIn, ruleOut := rule(raw, feePayer)
		if in == nil {
			in = ruleIn
		}
		if out == nil {
			out = ruleOut
		}
		if in != nil && out != nil {
			break
		}
	}
	return in, out
}

func swapEvent(raw helius.RawTransaction) map[string]any {
	return helius.Object(helius.Object(raw, "events"), "swap")
}

// swapEventNativeLegs reads events.swap.nativeInput / nativeOutput.
func swapEventNativeLegs(raw helius.RawTransaction, _ string) (in, out *leg) {
	swap := swapEvent(raw)
	return nativeLeg(helius.Object(swap, "nativeInput")), nativeLeg(helius.Object(swap, "nativeOutput"))
}

func nativeLeg(m map[string]any) *leg {
	lamports, ok := helius.Number(m, "amount")
	if !ok || lamports <= 0 {
		return nil
	}
	return &leg{token: solana.NativeToken, amount: solana.LamportsToSOL(lamports)}
}

// innerSwapLegs takes the first token input and first token output found
// across events.swap.innerSwaps, in hop order.
func innerSwapLegs(raw helius.RawTransaction, _ string) (in, out *leg) {
	for _, hop := range helius.Objects(swapEvent(raw), "innerSwaps") {
		if in == nil {
			in = firstTokenLeg(helius.Objects(hop, "tokenInputs"))
		}
		if out == nil {
			out = firstTokenLeg(helius.Objects(hop, "tokenOutputs"))
		}
		if in != nil && out != nil {
			break
		}
	}
	return in, out
}

func firstTokenLeg(transfers []map[string]any) *leg {
	if len(transfers) == 0 {
		return nil
	}
	return tokenLeg(transfers[0])
}

func tokenLeg(transfer map[string]any) *leg {
	mint := helius.Str(transfer, "mint")
	if mint == "" {
		return nil
	}
	return &leg{token: mint, amount: tokenAmount(transfer)}
}

// tokenAmount reads the whole-unit token amount, falling back to the
// rawTokenAmount {tokenAmount, decimals} form.
func tokenAmount(transfer map[string]any) float64 {
	if v, ok := helius.Number(transfer, "tokenAmount"); ok {
		return math.Abs(v)
	}
	raw := helius.Object(transfer, "rawTokenAmount")
	amount, ok := helius.Number(raw, "tokenAmount")
	if !ok {
		return 0
	}
	decimals := helius.NumberOrZero(raw, "decimals")
	return math.Abs(amount) / math.Pow10(int(decimals))
}

// tokenTransferLegs matches flat token transfers against the fee payer. An
// explicit "in"/"out" direction on the transfer is honored as well.
func tokenTransferLegs(raw helius.RawTransaction, feePayer string) (in, out *leg) {
	for _, transfer := range helius.Objects(raw, "tokenTransfers") {
		direction := helius.Str(transfer, "type")
		if in == nil && (direction == "in" || sentBy(transfer, feePayer)) {
			in = tokenLeg(transfer)
			continue
		}
		if out == nil && (direction == "out" || receivedBy(transfer, feePayer)) {
			out = tokenLeg(transfer)
		}
	}
	return in, out
}

// nativeTransferLegs matches flat SOL transfers against the fee payer.
func nativeTransferLegs(raw helius.RawTransaction, feePayer string) (in, out *leg) {
	for _, transfer := range helius.Objects(raw, "nativeTransfers") {
		if in == nil && sentBy(transfer, feePayer) {
			in = nativeLeg(transfer)
			continue
		}
		if out == nil && receivedBy(transfer, feePayer) {
			out = nativeLeg(transfer)
		}
	}
	return in, out
}

func sentBy(transfer map[string]any, account string) bool {
	return account != "" && helius.Str(transfer, "fromUserAccount") == account
}

func receivedBy(transfer map[string]any, account string) bool {
	return account != "" && helius.Str(transfer, "toUserAccount") == account
}

func transferMints(raw helius.RawTransaction) []string {
	var mints []string
	seen := map[string]struct{}{}
	for _, transfer := range helius.Objects(raw, "tokenTransfers") {
		mint := helius.Str(transfer, "mint")
		if mint == "" {
			continue
		}
		if _, ok := seen[mint]; ok {
			continue
		}
		seen[mint] = struct{}{}
		mints = append(mints, mint)
	}
	return mints
}
