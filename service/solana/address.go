package solana

import (
	"fmt"
	"regexp"
	"unicode"

	"github.com/gagliardetto/solana-go"
)

const (
	// LamportsPerSOL is the scale between the native currency's smallest unit and whole SOL.
	LamportsPerSOL = 1_000_000_000

	// NativeToken stands in for a mint address when a leg moves native SOL.
	NativeToken = "NATIVE"

	MinAddressLength = 32
	MaxAddressLength = 44
)

var (
	// Valid Solana address characters: base58 (no 0, O, I, l)
	validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// ValidateAddress checks that address looks like a Solana account address and
// decodes to a 32 byte public key.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}

	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("invalid characters in address: control characters not allowed")
		}
	}

	if len(address) < MinAddressLength || len(address) > MaxAddressLength {
		return fmt.Errorf("invalid address length %d: must be between %d and %d characters",
			len(address), MinAddressLength, MaxAddressLength)
	}

	if !validAddressRegex.MatchString(address) {
		return fmt.Errorf("invalid address format: must contain only valid base58 characters")
	}

	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	return nil
}

// LamportsToSOL converts a raw lamport amount to whole SOL.
func LamportsToSOL(lamports float64) float64 {
	return lamports / LamportsPerSOL
}

// ShortAddress returns the first n characters of address, or all of it when shorter.
func ShortAddress(address string, n int) string {
	if len(address) <= n {
		return address
	}
	return address[:n]
}
