// Package testsupport provides the fakes every keyagree test is built on:
// a toy Burmester-Desmedt crypto suite and an in-memory fan-out network.
// Nothing here is fit for production use; it exists so tests can exercise
// the real algebraic property the engine depends on (every honest
// participant derives the same key) without pulling in a real group, the
// same way the teacher's test/testing.go supplies TestInvoker and
// UnityCluster instead of a production transport.
package testsupport

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/jabolina/go-keyagree/pkg/keyagree/types"
)

// modulus and generator for a small multiplicative group. 2^61-1 is a
// Mersenne prime; large enough to make accidental collisions in tests
// implausible, small enough to keep big.Int arithmetic cheap.
var (
	modulus, _ = new(big.Int).SetString("2305843009213693951", 10)
	generator  = big.NewInt(5)
)

// ToyCrypto implements types.CryptoSuite with a textbook Burmester-Desmedt
// construction over a small group. It is deterministic except for the
// random scalar, making derived-key equality across participants a real
// assertion rather than a tautology.
type ToyCrypto struct{}

func NewToyCrypto() *ToyCrypto {
	return &ToyCrypto{}
}

func (ToyCrypto) GenerateRi() (types.Scalar, error) {
	max := new(big.Int).Sub(modulus, big.NewInt(1))
	r, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, err
	}
	r.Add(r, big.NewInt(1))
	return types.Scalar(r.Bytes()), nil
}

func (ToyCrypto) ComputeZi(r types.Scalar) (types.Z, error) {
	rb := new(big.Int).SetBytes(r)
	z := new(big.Int).Exp(generator, rb, modulus)
	return types.Z(z.Bytes()), nil
}

// ComputeXi computes (z_right / z_left) ^ r mod p, the standard BD
// per-round value exchanged between neighbors on the cycle.
func (ToyCrypto) ComputeXi(r types.Scalar, zRight, zLeft types.Z) (types.X, error) {
	rb := new(big.Int).SetBytes(r)
	right := new(big.Int).SetBytes(zRight)
	left := new(big.Int).SetBytes(zLeft)

	leftInv := new(big.Int).ModInverse(left, modulus)
	if leftInv == nil {
		return nil, fmt.Errorf("testsupport: z_left has no inverse mod p")
	}
	ratio := new(big.Int).Mod(new(big.Int).Mul(right, leftInv), modulus)
	x := new(big.Int).Exp(ratio, rb, modulus)
	return types.X(x.Bytes()), nil
}

// ComputeSharedSecret locates xSelf within xArray to recover this
// participant's position on the cycle, then folds z_left and every other
// X into the shared key via the standard BD product formula. Every
// honest participant that ran the same cycle computes the same value.
func (ToyCrypto) ComputeSharedSecret(r types.Scalar, xSelf types.X, zLeft types.Z, xArray []types.X) (types.Secret, error) {
	n := len(xArray)
	i := -1
	for idx, x := range xArray {
		if bytes.Equal(x, xSelf) {
			i = idx
			break
		}
	}
	if i < 0 {
		return nil, fmt.Errorf("testsupport: x_self not present in x_array")
	}

	rb := new(big.Int).SetBytes(r)
	left := new(big.Int).SetBytes(zLeft)

	exp := new(big.Int).Mul(big.NewInt(int64(n)), rb)
	secret := new(big.Int).Exp(left, exp, modulus)

	for j := 0; j < n-1; j++ {
		xj := new(big.Int).SetBytes(xArray[(i+j)%n])
		power := big.NewInt(int64(n - 1 - j))
		secret.Mul(secret, new(big.Int).Exp(xj, power, modulus))
		secret.Mod(secret, modulus)
	}
	return types.Secret(secret.Bytes()), nil
}

func (ToyCrypto) DeriveKey(ctx context.Context, secret types.Secret) (types.Key, error) {
	sum := sha256.Sum256(secret)
	return types.Key(sum[:]), nil
}
