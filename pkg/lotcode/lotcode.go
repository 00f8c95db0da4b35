// Package lotcode synthesizes batch lot codes.
// Codes combine the generation date, a fragment of the drug ID and a random
// suffix: PREFIX-YYYYMMDD-FRAG-SUFX (e.g. LOT-20260830-1A2B-X7QF).
package lotcode

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"clinika/internal/core/id"
)

// Prefixes used by the stock mutation engine.
const (
	PrefixPurchase   = "LOT" // synthesized for purchase lines without a lot code
	PrefixReturn     = "RET" // batch auto-created by a prescription return
	PrefixAdjustment = "ADJ" // batch auto-created by a manual IN adjustment
)

const suffixLen = 4

// Alphabet for the random suffix. Excludes 0/1/I/O to keep codes readable
// on printed labels.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generator produces lot codes. Abstracted so tests can substitute a
// deterministic implementation.
type Generator interface {
	Next(prefix string, drugID id.ID, now time.Time) string
}

// Service is the default Generator.
type Service struct{}

// New creates a lot code generator.
func New() *Service {
	return &Service{}
}

// Next synthesizes a lot code for the given drug.
func (s *Service) Next(prefix string, drugID id.ID, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s",
		prefix,
		now.UTC().Format("20060102"),
		drugFragment(drugID),
		randomSuffix(),
	)
}

// drugFragment takes the leading hex digits of the drug ID so codes for the
// same drug share a recognizable stem.
func drugFragment(drugID id.ID) string {
	hex := strings.ReplaceAll(drugID.String(), "-", "")
	return strings.ToUpper(hex[:4])
}

func randomSuffix() string {
	buf := make([]byte, suffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand is documented to never fail on supported platforms
		panic(fmt.Sprintf("lotcode: read random: %v", err))
	}
	out := make([]byte, suffixLen)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}
