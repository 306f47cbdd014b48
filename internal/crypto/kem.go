package crypto

import "crypto/mlkem"

// GenerateMLKEM768 returns a fresh ML-KEM-768 key pair: the 64-byte
// decapsulation seed and the encoded encapsulation key.
func GenerateMLKEM768() (seed, encapsulationKey []byte, err error) {
	dk, err := mlkem.GenerateKey768()
	if err != nil {
		return nil, nil, err
	}
	return dk.Bytes(), dk.EncapsulationKey().Bytes(), nil
}
