package bsv

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/txscript"
)

const (
	// ProtocolID identifies the token protocol inside an inscription.
	ProtocolID = "bsv-20"
	// inscriptionContentType is the MIME type of the embedded token-state
	// record.
	inscriptionContentType = "application/bsv-20"

	// mainnetPubKeyHashVersion is the base58check version byte of a
	// pay-to-pubkey-hash address.
	mainnetPubKeyHashVersion = 0x00
)

// Inscription is the token-state record embedded in an output's locking
// script. Amounts are serialized as decimal strings, the encoding indexers
// expect.
type Inscription struct {
	Protocol string `json:"p"`
	Op       string `json:"op"`
	TokenID  string `json:"id"`
	Amount   string `json:"amt"`
}

// NewTransferInscription builds the record carried by a transfer output.
func NewTransferInscription(tokenID string, atomicAmount uint64) Inscription {
	return Inscription{
		Protocol: ProtocolID,
		Op:       "transfer",
		TokenID:  tokenID,
		Amount:   fmt.Sprintf("%d", atomicAmount),
	}
}

func (i Inscription) Marshal() ([]byte, error) {
	return json.Marshal(i)
}

// LockKind tags a locking script variant.
type LockKind int

const (
	// LockOwnerAndApprover requires both the current owner's signature and
	// the network approver's co-signature.
	LockOwnerAndApprover LockKind = iota
)

// Lock is a tagged locking script variant. Script() is a pure function of
// the variant's fields.
type Lock struct {
	Kind            LockKind
	OwnerPubKeyHash []byte
	ApproverPubKey  []byte
}

// NewOwnerApproverLock builds the two-party lock for the given owner address
// and the approver's compressed public key.
func NewOwnerApproverLock(ownerAddress, approverPubKeyHex string) (Lock, error) {
	pkh, err := AddressToPubKeyHash(ownerAddress)
	if err != nil {
		return Lock{}, err
	}
	approver, err := hex.DecodeString(approverPubKeyHex)
	if err != nil {
		return Lock{}, fmt.Errorf("invalid approver public key: %w", err)
	}
	if len(approver) != 33 {
		return Lock{}, fmt.Errorf("approver public key must be compressed, got %d bytes", len(approver))
	}
	return Lock{
		Kind:            LockOwnerAndApprover,
		OwnerPubKeyHash: pkh,
		ApproverPubKey:  approver,
	}, nil
}

// Script renders the locking script of the variant.
func (l Lock) Script() ([]byte, error) {
	switch l.Kind {
	case LockOwnerAndApprover:
		return txscript.NewScriptBuilder().
			AddOp(txscript.OP_DUP).
			AddOp(txscript.OP_HASH160).
			AddData(l.OwnerPubKeyHash).
			AddOp(txscript.OP_EQUALVERIFY).
			AddOp(txscript.OP_CHECKSIGVERIFY).
			AddData(l.ApproverPubKey).
			AddOp(txscript.OP_CHECKSIG).
			Script()
	default:
		return nil, fmt.Errorf("unknown lock kind %d", l.Kind)
	}
}

// ScriptWithInscription renders the locking script followed by the
// inscription envelope carrying the token-state record.
func (l Lock) ScriptWithInscription(ins Inscription) ([]byte, error) {
	lockScript, err := l.Script()
	if err != nil {
		return nil, err
	}
	payload, err := ins.Marshal()
	if err != nil {
		return nil, err
	}
	envelope, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_FALSE).
		AddOp(txscript.OP_IF).
		AddData([]byte("ord")).
		AddOp(txscript.OP_1).
		AddData([]byte(inscriptionContentType)).
		AddOp(txscript.OP_0).
		AddData(payload).
		AddOp(txscript.OP_ENDIF).
		Script()
	if err != nil {
		return nil, err
	}
	return append(lockScript, envelope...), nil
}

// Unlock is the owner-side unlocking data for a lock variant. The cosigning
// authority prepends its own signature server-side; the owner's contribution
// is always signature then public key, as push data, in that order.
type Unlock struct {
	Kind      LockKind
	Signature []byte
	PubKey    []byte
}

// Script renders the unlocking script of the variant.
func (u Unlock) Script() ([]byte, error) {
	switch u.Kind {
	case LockOwnerAndApprover:
		return txscript.NewScriptBuilder().
			AddData(u.Signature).
			AddData(u.PubKey).
			Script()
	default:
		return nil, fmt.Errorf("unknown lock kind %d", u.Kind)
	}
}

// AddressToPubKeyHash decodes a base58check pay-to-pubkey-hash address.
func AddressToPubKeyHash(addr string) ([]byte, error) {
	pkh, version, err := base58.CheckDecode(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if version != mainnetPubKeyHashVersion {
		return nil, fmt.Errorf("invalid address %q: unexpected version byte %d", addr, version)
	}
	if len(pkh) != 20 {
		return nil, fmt.Errorf("invalid address %q: hash length %d", addr, len(pkh))
	}
	return pkh, nil
}

// PubKeyToAddress derives the pay-to-pubkey-hash address of a compressed
// public key.
func PubKeyToAddress(pubKey []byte) string {
	return base58.CheckEncode(btcutil.Hash160(pubKey), mainnetPubKeyHashVersion)
}
