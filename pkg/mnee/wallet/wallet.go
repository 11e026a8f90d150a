package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/mnee-xyz/mnee-cli/pkg/bsv"
)

// Signer supplies the decrypted signing key and the owning address. Key
// storage, encryption and password handling live outside the engine; by the
// time a Signer exists the key is already unwrapped.
type Signer interface {
	PrivateKey() *btcec.PrivateKey
	PubKey() []byte
	Address() string
}

type wifSigner struct {
	key     *btcec.PrivateKey
	pubKey  []byte
	address string
}

// NewWIFSigner builds a Signer from a WIF-encoded private key.
func NewWIFSigner(wifStr string) (Signer, error) {
	wif, err := btcutil.DecodeWIF(wifStr)
	if err != nil {
		return nil, fmt.Errorf("invalid WIF: %w", err)
	}

	pubKey := wif.PrivKey.PubKey().SerializeCompressed()
	return &wifSigner{
		key:     wif.PrivKey,
		pubKey:  pubKey,
		address: bsv.PubKeyToAddress(pubKey),
	}, nil
}

// NewKeySigner builds a Signer from an already-decoded private key.
func NewKeySigner(key *btcec.PrivateKey) Signer {
	pubKey := key.PubKey().SerializeCompressed()
	return &wifSigner{
		key:     key,
		pubKey:  pubKey,
		address: bsv.PubKeyToAddress(pubKey),
	}
}

func (s *wifSigner) PrivateKey() *btcec.PrivateKey { return s.key }

func (s *wifSigner) PubKey() []byte { return s.pubKey }

func (s *wifSigner) Address() string { return s.address }
