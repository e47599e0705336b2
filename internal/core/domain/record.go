package domain

import "fmt"

// MaxIDLen bounds request_id, receipt_id and display_name.
const MaxIDLen = 64

// RecordKind tags the payload stored at a record address.
type RecordKind uint8

const (
	KindMerchant       RecordKind = 1
	KindPaymentRequest RecordKind = 2
	KindPaymentReceipt RecordKind = 3
)

// Reserved footprint per kind, in bytes.
const (
	MerchantSpace       = 32 + 4 + MaxIDLen + 1
	PaymentRequestSpace = 32 + 4 + MaxIDLen + 8 + 32 + 1 + 8 + 1
	PaymentReceiptSpace = 32 + 32 + 32 + 8 + 32 + 1 + 4 + MaxIDLen + 8
)

// Space returns the bytes reserved when a record of this kind is created.
func (k RecordKind) Space() int {
	switch k {
	case KindMerchant:
		return MerchantSpace
	case KindPaymentRequest:
		return PaymentRequestSpace
	case KindPaymentReceipt:
		return PaymentReceiptSpace
	}
	return 0
}

func (k RecordKind) String() string {
	switch k {
	case KindMerchant:
		return "merchant"
	case KindPaymentRequest:
		return "payment_request"
	case KindPaymentReceipt:
		return "payment_receipt"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Record is the stored form of any addressable entity.
type Record struct {
	Address Address
	Kind    RecordKind
	Data    []byte
}

// CheckSpace rejects unknown kinds and payloads larger than the reservation.
func (r *Record) CheckSpace() error {
	space := r.Kind.Space()
	if space == 0 {
		return fmt.Errorf("%w: %s", ErrUnexpectedKind, r.Kind)
	}
	if len(r.Data) > space {
		return fmt.Errorf("%w: %s uses %d of %d bytes", ErrRecordTooLarge, r.Kind, len(r.Data), space)
	}
	return nil
}

// ValidateID checks the length bound shared by request and receipt ids.
func ValidateID(id string) error {
	if len(id) == 0 || len(id) > MaxIDLen {
		return ErrInvalidID
	}
	return nil
}

func expectKind(rec *Record, want RecordKind) error {
	if rec.Kind != want {
		return fmt.Errorf("%w: have %s, want %s", ErrUnexpectedKind, rec.Kind, want)
	}
	return nil
}
