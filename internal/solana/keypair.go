package solana

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

var (
	ErrInvalidKey     = errors.New("invalid private key")
	ErrInvalidAddress = errors.New("invalid address")
)

// Keypair is an ed25519 signing key for a Solana account.
type Keypair struct {
	priv ed25519.PrivateKey
}

// ParseKeypair accepts the formats wallets commonly export: a JSON byte
// array (solana-keygen), a hex string, or base58 (Phantom). A 64 byte key
// must carry the public key matching its seed; 32 bytes is treated as the
// seed alone.
func ParseKeypair(s string) (*Keypair, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}

	raw, err := decodeKey(s)
	if err != nil {
		return nil, err
	}

	switch len(raw) {
	case ed25519.SeedSize:
		return &Keypair{priv: ed25519.NewKeyFromSeed(raw)}, nil
	case ed25519.PrivateKeySize:
		priv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(raw[ed25519.SeedSize:])) {
			return nil, fmt.Errorf("%w: public half does not match seed", ErrInvalidKey)
		}
		return &Keypair{priv: priv}, nil
	default:
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKey, len(raw))
	}
}

func decodeKey(s string) ([]byte, error) {
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		out := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: byte %d out of range", ErrInvalidKey, i)
			}
			out[i] = byte(v)
		}
		return out, nil
	}
	if len(s) == 2*ed25519.PrivateKeySize || len(s) == 2*ed25519.SeedSize {
		if raw, err := hex.DecodeString(s); err == nil {
			return raw, nil
		}
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return raw, nil
}

func NewKeypairFromSeed(seed []byte) *Keypair {
	return &Keypair{priv: ed25519.NewKeyFromSeed(seed)}
}

func (k *Keypair) PublicKey() [32]byte {
	var pub [32]byte
	copy(pub[:], k.priv.Public().(ed25519.PublicKey))
	return pub
}

// Address is the base58 public key.
func (k *Keypair) Address() string {
	pub := k.PublicKey()
	return base58.Encode(pub[:])
}

func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

func DecodePublicKey(addr string) ([32]byte, error) {
	var pub [32]byte
	raw, err := base58.Decode(addr)
	if err != nil {
		return pub, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != 32 {
		return pub, fmt.Errorf("%w: decodes to %d bytes", ErrInvalidAddress, len(raw))
	}
	copy(pub[:], raw)
	return pub, nil
}

// IsOnCurve reports whether pub is a valid ed25519 point. Program derived
// addresses are deliberately off the curve and have no private key.
func IsOnCurve(pub [32]byte) bool {
	_, err := new(edwards25519.Point).SetBytes(pub[:])
	return err == nil
}
