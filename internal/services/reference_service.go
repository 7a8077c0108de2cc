package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/smarttransit/booking-core/internal/database"
	"github.com/smarttransit/booking-core/internal/models"
)

// ReferenceLength is the length of a booking reference code
const ReferenceLength = 10

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ReferenceGenerator produces candidate booking reference codes
type ReferenceGenerator interface {
	Generate() (string, error)
}

// RandomReferenceGenerator draws codes from crypto/rand
type RandomReferenceGenerator struct{}

// Generate returns ReferenceLength characters from [A-Z0-9]
func (RandomReferenceGenerator) Generate() (string, error) {
	limit := big.NewInt(int64(len(referenceAlphabet)))
	code := make([]byte, ReferenceLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		code[i] = referenceAlphabet[n.Int64()]
	}
	return string(code), nil
}

// uniqueReference draws codes until one is unused inside the current transaction
func uniqueReference(ctx context.Context, tx database.TripTx, gen ReferenceGenerator, maxAttempts int) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ref, err := gen.Generate()
		if err != nil {
			return "", models.NewPersistenceError("generate reference", err)
		}

		exists, err := tx.ReferenceExists(ctx, ref)
		if err != nil {
			return "", models.NewPersistenceError("check reference", err)
		}
		if !exists {
			return ref, nil
		}
	}

	return "", &models.PersistenceError{
		Op:   "generate reference",
		Code: models.CodeReferenceExhausted,
		Err:  fmt.Errorf("no unique booking reference after %d attempts", maxAttempts),
	}
}
