package txn

// Transaction is the canonical swap record produced by the Normalizer.
// Amounts are in whole units; native SOL legs use solana.NativeToken as the token.
type Transaction struct {
	Signature    string  `json:"signature"`
	Timestamp    int64   `json:"timestamp"`
	ActivityType string  `json:"activity_type"`
	Protocol     string  `json:"protocol"`
	TokenIn      string  `json:"token_in"`
	TokenOut     string  `json:"token_out"`
	AmountIn     float64 `json:"amount_in"`
	AmountOut    float64 `json:"amount_out"`
	ValueUSD     float64 `json:"value_usd"`

	// Description and Mints feed the type and token filters; they are not exported to CSV.
	Description string   `json:"description,omitempty"`
	Mints       []string `json:"mints,omitempty"`
}

// HasMint reports whether any token transfer of the transaction moved mint.
func (t Transaction) HasMint(mint string) bool {
	for _, m := range t.Mints {
		if m == mint {
			return true
		}
	}
	return false
}
