package cache

import (
	"github.com/google/uuid"
)

// KeyGenerator issues keys for newly stored values.
//
// Contract:
//   - Uniqueness: keys must not repeat in practice; no check is made against
//     keys already in the store.
//   - Concurrency: implementations must be safe for concurrent use.
type KeyGenerator interface {
	NewKey() (string, error)
}

// UUIDKeyGenerator issues random (version 4) UUIDs in canonical text form.
type UUIDKeyGenerator struct{}

// NewKey returns a fresh UUID string.
func (UUIDKeyGenerator) NewKey() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// KeyGeneratorFunc adapts a function to KeyGenerator.
type KeyGeneratorFunc func() (string, error)

func (f KeyGeneratorFunc) NewKey() (string, error) { return f() }

// Identity returns the operation identity "<namespace>.<op>". The identity is
// also the counter key for the operation.
func Identity(namespace, op string) string {
	if namespace == "" {
		return op
	}
	return namespace + "." + op
}

// HistoryKeys returns the list keys holding the inputs and outputs of an
// operation identity.
func HistoryKeys(identity string) (inputs, outputs string) {
	return identity + ":inputs", identity + ":outputs"
}

var (
	_ KeyGenerator = UUIDKeyGenerator{}
	_ KeyGenerator = KeyGeneratorFunc(nil)
)
