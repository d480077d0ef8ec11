package crypto

import (
	"math/big"

	"github.com/skyline93/rscache/internal/errors"
)

// ModPow returns base^exponent mod modulus. Every exponent bit costs one
// squaring and one multiplication, whether the bit is set or not.
func ModPow(base, exponent, modulus *big.Int) (*big.Int, error) {
	if modulus.Sign() <= 0 {
		return nil, errors.Errorf("modulus %v is not positive", modulus)
	}
	if exponent.Sign() < 0 {
		return nil, errors.Errorf("exponent %v is negative", exponent)
	}
	if modulus.Cmp(big.NewInt(1)) == 0 {
		return new(big.Int), nil
	}

	b := new(big.Int).Mod(base, modulus)
	result := big.NewInt(1)
	product := new(big.Int)

	for i := exponent.BitLen() - 1; i >= 0; i-- {
		result.Mul(result, result).Mod(result, modulus)
		product.Mul(result, b).Mod(product, modulus)
		if exponent.Bit(i) == 1 {
			result, product = product, result
		}
	}

	return result, nil
}

// RSAKey is the key pair half a server uses to open login blocks.
type RSAKey struct {
	Exponent *big.Int
	Modulus  *big.Int
}

// ParseRSAKey parses a key given as decimal numbers.
func ParseRSAKey(exponent, modulus string) (RSAKey, error) {
	e, ok := new(big.Int).SetString(exponent, 10)
	if !ok {
		return RSAKey{}, errors.Errorf("invalid exponent %q", exponent)
	}
	m, ok := new(big.Int).SetString(modulus, 10)
	if !ok {
		return RSAKey{}, errors.Errorf("invalid modulus %q", modulus)
	}
	return RSAKey{Exponent: e, Modulus: m}, nil
}

// Apply interprets block as a big endian number and raises it to the key.
// The same operation decrypts with a private key and signs with it.
func (k RSAKey) Apply(block []byte) ([]byte, error) {
	r, err := ModPow(new(big.Int).SetBytes(block), k.Exponent, k.Modulus)
	if err != nil {
		return nil, err
	}
	return r.Bytes(), nil
}
