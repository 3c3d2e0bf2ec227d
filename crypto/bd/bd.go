// Package bd implements a Burmester-Desmedt group key-agreement
// CryptoSuite over the 2048-bit MODP group of RFC 3526. It is the
// collaborator the command-line demo wires into an Engine.
package bd

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/jabolina/go-keyagree/pkg/keyagree/types"
)

// group is the 2048-bit MODP safe prime from RFC 3526 (group 14), used
// with its published generator 2.
var (
	group, _  = new(big.Int).SetString("FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA051015728E5A8AACAA68FFFFFFFFFFFFFFFF", 16)
	generator = big.NewInt(2)
)

// Suite implements types.CryptoSuite using the textbook Burmester-Desmedt
// construction: each participant contributes a Diffie-Hellman value Z,
// folds it with its ring neighbors into an X, and every participant
// recovers the same product-of-exponentials secret from the completed X
// array.
type Suite struct{}

// NewSuite returns a ready-to-use Suite. It has no internal state to
// configure.
func NewSuite() *Suite {
	return &Suite{}
}

func (Suite) GenerateRi() (types.Scalar, error) {
	max := new(big.Int).Sub(group, big.NewInt(1))
	r, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, err
	}
	r.Add(r, big.NewInt(1))
	return types.Scalar(r.Bytes()), nil
}

func (Suite) ComputeZi(r types.Scalar) (types.Z, error) {
	rb := new(big.Int).SetBytes(r)
	z := new(big.Int).Exp(generator, rb, group)
	return types.Z(z.Bytes()), nil
}

func (Suite) ComputeXi(r types.Scalar, zRight, zLeft types.Z) (types.X, error) {
	rb := new(big.Int).SetBytes(r)
	right := new(big.Int).SetBytes(zRight)
	left := new(big.Int).SetBytes(zLeft)

	leftInv := new(big.Int).ModInverse(left, group)
	if leftInv == nil {
		return nil, fmt.Errorf("bd: z_left has no inverse mod p")
	}
	ratio := new(big.Int).Mod(new(big.Int).Mul(right, leftInv), group)
	x := new(big.Int).Exp(ratio, rb, group)
	return types.X(x.Bytes()), nil
}

func (Suite) ComputeSharedSecret(r types.Scalar, xSelf types.X, zLeft types.Z, xArray []types.X) (types.Secret, error) {
	n := len(xArray)
	i := -1
	for idx, x := range xArray {
		if bytes.Equal(x, xSelf) {
			i = idx
			break
		}
	}
	if i < 0 {
		return nil, fmt.Errorf("bd: x_self not present in x_array")
	}

	rb := new(big.Int).SetBytes(r)
	left := new(big.Int).SetBytes(zLeft)

	exp := new(big.Int).Mul(big.NewInt(int64(n)), rb)
	secret := new(big.Int).Exp(left, exp, group)

	for j := 0; j < n-1; j++ {
		xj := new(big.Int).SetBytes(xArray[(i+j)%n])
		power := big.NewInt(int64(n - 1 - j))
		secret.Mul(secret, new(big.Int).Exp(xj, power, group))
		secret.Mod(secret, group)
	}
	return types.Secret(secret.Bytes()), nil
}

func (Suite) DeriveKey(ctx context.Context, secret types.Secret) (types.Key, error) {
	sum := sha256.Sum256(secret)
	return types.Key(sum[:]), nil
}
