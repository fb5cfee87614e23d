package certtheory

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// IDGenerator provides correlation ids for invocations.
type IDGenerator interface {
	NewID() string
}

// RandomIDGenerator generates ULIDs from cryptographic randomness.
type RandomIDGenerator struct{}

func (RandomIDGenerator) NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
