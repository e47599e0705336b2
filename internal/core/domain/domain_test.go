package domain

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(b byte) Identity {
	var id Identity
	for i := range id {
		id[i] = b
	}
	return id
}

func asset(b byte) AssetID {
	var a AssetID
	for i := range a {
		a[i] = b ^ 0x5a
	}
	return a
}

func TestDerive_Deterministic(t *testing.T) {
	owner := identity(7)

	a1, bump1, err := MerchantAddress(owner)
	require.NoError(t, err)
	a2, bump2, err := MerchantAddress(owner)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Equal(t, bump1, bump2)
	assert.False(t, a1.IsZero())

	again, err := CreateAddress(bump1, []byte(SeedMerchant), owner[:])
	require.NoError(t, err)
	assert.Equal(t, a1, again)
}

func TestDerive_SeedBoundariesMatter(t *testing.T) {
	a, _, err := Derive([]byte("ab"), []byte("c"))
	require.NoError(t, err)
	b, _, err := Derive([]byte("a"), []byte("bc"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDerive_FamiliesDoNotOverlap(t *testing.T) {
	owner := identity(1)
	merchant, _, err := MerchantAddress(owner)
	require.NoError(t, err)

	req, _, err := RequestAddress(merchant, "id-1")
	require.NoError(t, err)
	rcpt, _, err := ReceiptAddress(owner, "id-1")
	require.NoError(t, err)
	other, _, err := RequestAddress(merchant, "id-2")
	require.NoError(t, err)

	assert.NotEqual(t, merchant, req)
	assert.NotEqual(t, req, rcpt)
	assert.NotEqual(t, req, other)
}

func TestDerive_Limits(t *testing.T) {
	_, _, err := Derive(make([]byte, MaxSeedLen+1))
	assert.ErrorIs(t, err, ErrSeedTooLong)

	seeds := make([][]byte, MaxSeeds+1)
	_, _, err = Derive(seeds...)
	assert.ErrorIs(t, err, ErrTooManySeeds)

	_, _, err = Derive(make([]byte, MaxSeedLen))
	assert.NoError(t, err)
}

func TestAddress_TextRoundTrip(t *testing.T) {
	addr, _, err := MerchantAddress(identity(3))
	require.NoError(t, err)

	s := addr.String()
	assert.True(t, strings.HasPrefix(s, HRPAddress+"1"))

	parsed, err := ParseAddress(s)
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	raw, err := json.Marshal(struct {
		A Address `json:"a"`
	}{addr})
	require.NoError(t, err)
	assert.Contains(t, string(raw), s)
}

func TestAddress_RejectsWrongPrefix(t *testing.T) {
	id := identity(9)
	_, err := ParseAddress(id.String())
	assert.Error(t, err)

	_, err = ParseAssetID("not-bech32")
	assert.Error(t, err)

	parsedID, err := ParseIdentity(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsedID)

	a := asset(4)
	parsedAsset, err := ParseAssetID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsedAsset)
}

func TestRecordFootprints(t *testing.T) {
	assert.Equal(t, 101, MerchantSpace)
	assert.Equal(t, 150, PaymentRequestSpace)
	assert.Equal(t, 213, PaymentReceiptSpace)

	longID := strings.Repeat("x", MaxIDLen)
	expires := int64(1_700_000_000)

	m := &Merchant{Owner: identity(1), DisplayName: longID, Bump: 254}
	rec, err := m.Record()
	require.NoError(t, err)
	assert.Len(t, rec.Data, MerchantSpace)
	require.NoError(t, rec.CheckSpace())

	r := &PaymentRequest{Merchant: Address{1}, RequestID: longID, Amount: math.MaxUint64, Asset: asset(1), ExpiresAt: &expires, Bump: 1}
	rec, err = r.Record()
	require.NoError(t, err)
	assert.Len(t, rec.Data, PaymentRequestSpace)

	reqAddr := Address{2}
	p := &PaymentReceipt{Merchant: Address{1}, Payer: identity(2), Asset: asset(1), Amount: 5, Request: &reqAddr, ReceiptID: longID, Timestamp: -1, Bump: 9}
	rec, err = p.Record()
	require.NoError(t, err)
	assert.Len(t, rec.Data, PaymentReceiptSpace)
}

func TestMerchant_DecodeRoundTrip(t *testing.T) {
	m := &Merchant{Address: Address{8}, Owner: identity(5), DisplayName: "Corner Shop", Bump: 253}
	rec, err := m.Record()
	require.NoError(t, err)

	got, err := DecodeMerchant(rec)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	m.DisplayName = strings.Repeat("n", MaxIDLen+1)
	_, err = m.Record()
	assert.ErrorIs(t, err, ErrDisplayNameTooLong)
}

func TestPaymentRequest_DecodeRoundTrip(t *testing.T) {
	r := &PaymentRequest{Address: Address{4}, Merchant: Address{1}, RequestID: "req1", Amount: 1000, Asset: asset(2), Bump: 255}
	rec, err := r.Record()
	require.NoError(t, err)

	got, err := DecodePaymentRequest(rec)
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.Nil(t, got.ExpiresAt)

	_, err = DecodeMerchant(rec)
	assert.ErrorIs(t, err, ErrUnexpectedKind)
}

func TestPaymentReceipt_AdHocHasNoRequest(t *testing.T) {
	p := &PaymentReceipt{Address: Address{3}, Merchant: Address{1}, Payer: identity(2), Asset: asset(1), Amount: 42, ReceiptID: "r", Timestamp: 100, Bump: 250}
	rec, err := p.Record()
	require.NoError(t, err)

	got, err := DecodePaymentReceipt(rec)
	require.NoError(t, err)
	assert.Nil(t, got.Request)
	assert.Equal(t, p, got)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := DecodePaymentReceipt(&Record{Kind: KindPaymentReceipt, Data: []byte{1, 2, 3}})
	assert.ErrorIs(t, err, ErrMalformedRecord)

	m := &Merchant{Owner: identity(1)}
	rec, err := m.Record()
	require.NoError(t, err)
	rec.Data = append(rec.Data, 0)
	_, err = DecodeMerchant(rec)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestRecord_CheckSpace(t *testing.T) {
	err := (&Record{Kind: KindMerchant, Data: make([]byte, MerchantSpace+1)}).CheckSpace()
	assert.ErrorIs(t, err, ErrRecordTooLarge)

	err = (&Record{Kind: RecordKind(99)}).CheckSpace()
	assert.ErrorIs(t, err, ErrUnexpectedKind)
}

func TestValidateID(t *testing.T) {
	assert.ErrorIs(t, ValidateID(""), ErrInvalidID)
	assert.ErrorIs(t, ValidateID(strings.Repeat("a", 65)), ErrInvalidID)
	assert.NoError(t, ValidateID("a"))
	assert.NoError(t, ValidateID(strings.Repeat("a", 64)))
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name         string
		amount       uint64
		bps          uint32
		wantFee      uint64
		wantMerchant uint64
	}{
		{"quarter percent of 1000", 1000, 250, 25, 975},
		{"zero bps", 1000, 0, 0, 1000},
		{"full fee", 1000, 10_000, 1000, 0},
		{"floor goes to merchant", 999, 1, 0, 999},
		{"max amount does not overflow", math.MaxUint64, 10_000, math.MaxUint64, 0},
		{"max amount half", math.MaxUint64, 5_000, math.MaxUint64 / 2, math.MaxUint64 - math.MaxUint64/2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, merchant, err := SplitFee(tt.amount, tt.bps)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFee, fee)
			assert.Equal(t, tt.wantMerchant, merchant)
			assert.Equal(t, tt.amount, fee+merchant)
		})
	}

	_, _, err := SplitFee(1, 10_001)
	assert.ErrorIs(t, err, ErrFeeBpsOutOfRange)
}

func TestSplitFee_Conservation(t *testing.T) {
	for _, amount := range []uint64{0, 1, 7, 9_999, 10_001, 123_456_789, math.MaxUint64 - 3} {
		for bps := uint32(0); bps <= MaxFeeBps; bps += 337 {
			fee, merchant, err := SplitFee(amount, bps)
			require.NoError(t, err)
			require.Equal(t, amount, fee+merchant, "amount=%d bps=%d", amount, bps)
		}
	}
}

func TestPaymentRequest_Expired(t *testing.T) {
	exp := int64(100)
	r := &PaymentRequest{ExpiresAt: &exp}
	assert.False(t, r.Expired(100))
	assert.True(t, r.Expired(101))
	assert.False(t, (&PaymentRequest{}).Expired(math.MaxInt64))
}

func TestSigners_Has(t *testing.T) {
	s := Signers{identity(1), identity(2)}
	assert.True(t, s.Has(identity(2)))
	assert.False(t, s.Has(identity(3)))
	assert.False(t, Signers(nil).Has(identity(1)))
}
