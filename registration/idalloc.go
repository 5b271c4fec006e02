package registration

import (
	"context"
	"fmt"
	"math/rand/v2"
)

const DefaultAllocationAttempts = 10

// IDChecker reports whether a registration id is already taken, either by a
// committed record or by a staged reservation.
type IDChecker interface {
	RegistrationIDExists(ctx context.Context, registrationID string) (bool, error)
}

// Allocator hands out human-legible registration ids, retrying on
// collision. The check here is best effort only: allocation and commit can
// be minutes apart, so the commit transaction re-enforces uniqueness.
type Allocator struct {
	checker     IDChecker
	prefix      string
	maxAttempts int
}

func NewAllocator(checker IDChecker, prefix string, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultAllocationAttempts
	}

	return &Allocator{
		checker:     checker,
		prefix:      prefix,
		maxAttempts: maxAttempts,
	}
}

func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for range a.maxAttempts {
		candidate := fmt.Sprintf("%s%06d", a.prefix, rand.IntN(1000000))

		exists, err := a.checker.RegistrationIDExists(ctx, candidate)
		if err != nil {
			return "", NewFailedToFetchError(fmt.Sprintf("Failed to check registration id %q for collisions", candidate), err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", NewAllocationExhaustedError(a.maxAttempts)
}
