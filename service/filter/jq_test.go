package filter

import (
	"encoding/json"
	"testing"

	"github.com/brojonat/swapexport/service/helius"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJQ_Match(t *testing.T) {
	var raw helius.RawTransaction
	require.NoError(t, json.Unmarshal([]byte(`{
		"signature": "sig1",
		"fee": 5000,
		"source": "JUPITER",
		"tokenTransfers": [{"mint": "USDC", "tokenAmount": 12}]
	}`), &raw))

	tests := []struct {
		name  string
		exprs []string
		want  bool
	}{
		{"no expressions", nil, true},
		{"equality", []string{`.source == "JUPITER"`}, true},
		{"mismatch", []string{`.source == "ORCA"`}, false},
		{"all must match", []string{`.fee > 1000`, `.source == "ORCA"`}, false},
		{"nested any", []string{`any(.tokenTransfers[]; .mint == "USDC")`}, true},
		{"null is falsy", []string{`.missing`}, false},
		{"number is truthy", []string{`.fee`}, true},
		{"runtime error rejects", []string{`.source | tonumber`}, false},
		{"empty output rejects", []string{`empty`}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jq, err := CompileJQ(tt.exprs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, jq.Match(raw))
		})
	}
}

func TestJQ_Raw(t *testing.T) {
	raws := []helius.RawTransaction{
		{"signature": "a", "fee": 10.0},
		nil,
		{"signature": "b", "fee": 100000.0},
	}

	jq, err := CompileJQ([]string{`.fee >= 5000`})
	require.NoError(t, err)

	got := jq.Raw(raws)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Signature())

	var none *JQ
	assert.Equal(t, raws, none.Raw(raws))
}

func TestCompileJQ_Invalid(t *testing.T) {
	_, err := CompileJQ([]string{`.a ==`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}
