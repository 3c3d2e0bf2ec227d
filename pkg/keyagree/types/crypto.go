package types

import "context"

// CryptoSuite is the external collaborator implementing the low-level
// group key-agreement primitives. The engine treats every return value as
// opaque and every error as fatal to the in-flight cycle (spec error
// class: cryptographic failure, propagated verbatim).
type CryptoSuite interface {
	// GenerateRi produces a fresh private scalar for a new cycle record.
	GenerateRi() (Scalar, error)

	// ComputeZi derives this participant's public Z value from r.
	ComputeZi(r Scalar) (Z, error)

	// ComputeXi derives this participant's public X value from r and its
	// two ring neighbors' Z values.
	ComputeXi(r Scalar, zRight, zLeft Z) (X, error)

	// ComputeSharedSecret combines r, this participant's own X, the left
	// neighbor's Z and every X in the cycle into the shared secret.
	ComputeSharedSecret(r Scalar, xSelf X, zLeft Z, xArray []X) (Secret, error)

	// DeriveKey turns the shared secret into the symmetric session key.
	// This is the engine's sole suspension point: it may block on I/O or
	// a slow KDF. No cycle-table mutation happens between the call and
	// its return for the same cycle.
	DeriveKey(ctx context.Context, secret Secret) (Key, error)
}
