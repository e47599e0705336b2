package domain

// PaymentRequest is published by a merchant owner and may be matched by any
// number of settlements. It has no closed state.
type PaymentRequest struct {
	Address   Address `json:"address"`
	Merchant  Address `json:"merchant"`
	RequestID string  `json:"request_id"`
	Amount    uint64  `json:"amount"`
	Asset     AssetID `json:"asset"`
	ExpiresAt *int64  `json:"expires_at,omitempty"`
	Bump      uint8   `json:"bump"`
}

// Expired reports whether the request is past its expiry at now.
// A request without expiry never expires.
func (r *PaymentRequest) Expired(now int64) bool {
	return r.ExpiresAt != nil && now > *r.ExpiresAt
}

func (r *PaymentRequest) Record() (*Record, error) {
	if err := ValidateID(r.RequestID); err != nil {
		return nil, err
	}
	e := encoder{buf: make([]byte, 0, PaymentRequestSpace)}
	e.fixed(r.Merchant[:])
	e.str(r.RequestID)
	e.u64(r.Amount)
	e.fixed(r.Asset[:])
	e.optI64(r.ExpiresAt)
	e.u8(r.Bump)
	return &Record{Address: r.Address, Kind: KindPaymentRequest, Data: e.buf}, nil
}

func DecodePaymentRequest(rec *Record) (*PaymentRequest, error) {
	if err := expectKind(rec, KindPaymentRequest); err != nil {
		return nil, err
	}
	d := decoder{buf: rec.Data}
	r := &PaymentRequest{Address: rec.Address}
	r.Merchant = d.fixed32()
	r.RequestID = d.str(MaxIDLen)
	r.Amount = d.u64()
	r.Asset = d.fixed32()
	r.ExpiresAt = d.optI64()
	r.Bump = d.u8()
	if err := d.finish(); err != nil {
		return nil, err
	}
	return r, nil
}
