package domain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"lukechampine.com/blake3"
)

const (
	// MaxSeedLen is the longest single seed accepted by Derive.
	MaxSeedLen = 64
	// MaxSeeds is the most seeds a single derivation may combine.
	MaxSeeds = 16

	derivationTag = "settlement-ledger/derive/v1"
)

// Seed tags for the record families.
const (
	SeedMerchant = "merchant"
	SeedRequest  = "request"
	SeedReceipt  = "receipt"
	SeedHolding  = "holding"
)

// Bech32 human readable parts.
const (
	HRPAddress  = "addr"
	HRPIdentity = "idn"
	HRPAsset    = "ast"
)

// Address identifies a record or holding account. The zero value is never
// produced by Derive and stands for "no address".
type Address [32]byte

// Identity is the ed25519 public key of a principal.
type Identity [32]byte

// AssetID identifies an asset type.
type AssetID [32]byte

var errReservedAddress = errors.New("derived address is reserved")

// CreateAddress hashes the seeds and bump into an address. Each seed is
// length-prefixed, so ("ab","c") and ("a","bc") never meet.
func CreateAddress(bump uint8, seeds ...[]byte) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, ErrTooManySeeds
	}

	h := blake3.New(32, nil)
	h.Write([]byte(derivationTag))
	var lenBuf [2]byte
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return Address{}, ErrSeedTooLong
		}
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
		h.Write(lenBuf[:])
		h.Write(s)
	}
	h.Write([]byte{bump})

	var addr Address
	copy(addr[:], h.Sum(nil))
	if addr.IsZero() {
		return Address{}, errReservedAddress
	}
	return addr, nil
}

// Derive finds the address for seeds together with the bump that produced it.
// Bumps are tried from 255 downwards.
func Derive(seeds ...[]byte) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateAddress(uint8(bump), seeds...)
		if errors.Is(err, errReservedAddress) {
			continue
		}
		if err != nil {
			return Address{}, 0, err
		}
		return addr, uint8(bump), nil
	}
	return Address{}, 0, ErrNoViableBump
}

// MerchantAddress derives the merchant record address of owner.
func MerchantAddress(owner Identity) (Address, uint8, error) {
	return Derive([]byte(SeedMerchant), owner[:])
}

// RequestAddress derives the address of a payment request under merchant.
func RequestAddress(merchant Address, requestID string) (Address, uint8, error) {
	return Derive([]byte(SeedRequest), merchant[:], []byte(requestID))
}

// ReceiptAddress derives the receipt address for (payer, receiptID). At most
// one receipt can ever live there.
func ReceiptAddress(payer Identity, receiptID string) (Address, uint8, error) {
	return Derive([]byte(SeedReceipt), payer[:], []byte(receiptID))
}

// HoldingAddress derives the holding account of owner for asset.
func HoldingAddress(owner Identity, asset AssetID) (Address, uint8, error) {
	return Derive([]byte(SeedHolding), owner[:], asset[:])
}

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) String() string { return encodeBech32(HRPAddress, a[:]) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	b, err := decodeBech32(HRPAddress, string(text))
	if err != nil {
		return err
	}
	*a = b
	return nil
}

// ParseAddress decodes the bech32 form of an address.
func ParseAddress(s string) (Address, error) {
	var a Address
	err := a.UnmarshalText([]byte(s))
	return a, err
}

func (i Identity) IsZero() bool { return i == Identity{} }

func (i Identity) String() string { return encodeBech32(HRPIdentity, i[:]) }

func (i Identity) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *Identity) UnmarshalText(text []byte) error {
	b, err := decodeBech32(HRPIdentity, string(text))
	if err != nil {
		return err
	}
	*i = b
	return nil
}

// ParseIdentity decodes the bech32 form of an identity.
func ParseIdentity(s string) (Identity, error) {
	var i Identity
	err := i.UnmarshalText([]byte(s))
	return i, err
}

func (a AssetID) IsZero() bool { return a == AssetID{} }

func (a AssetID) String() string { return encodeBech32(HRPAsset, a[:]) }

func (a AssetID) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *AssetID) UnmarshalText(text []byte) error {
	b, err := decodeBech32(HRPAsset, string(text))
	if err != nil {
		return err
	}
	*a = b
	return nil
}

// ParseAssetID decodes the bech32 form of an asset id.
func ParseAssetID(s string) (AssetID, error) {
	var a AssetID
	err := a.UnmarshalText([]byte(s))
	return a, err
}

func encodeBech32(hrp string, b []byte) string {
	conv, err := bech32.ConvertBits(b, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(hrp, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func decodeBech32(wantHRP, s string) ([32]byte, error) {
	var out [32]byte
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return out, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if hrp != wantHRP {
		return out, fmt.Errorf("unexpected prefix %q, want %q", hrp, wantHRP)
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return out, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != len(out) {
		return out, fmt.Errorf("decoded %d bytes, want %d", len(conv), len(out))
	}
	copy(out[:], conv)
	return out, nil
}
