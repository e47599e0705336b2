package domain

// PaymentReceipt is written exactly once per (payer, receipt_id) and is never
// modified, refunds included.
type PaymentReceipt struct {
	Address   Address  `json:"address"`
	Merchant  Address  `json:"merchant"`
	Payer     Identity `json:"payer"`
	Asset     AssetID  `json:"asset"`
	Amount    uint64   `json:"amount"`
	Request   *Address `json:"request,omitempty"`
	ReceiptID string   `json:"receipt_id"`
	Timestamp int64    `json:"timestamp"`
	Bump      uint8    `json:"bump"`
}

// Record encodes the receipt. The optional request is stored as 32 bytes,
// zero meaning none.
func (r *PaymentReceipt) Record() (*Record, error) {
	if err := ValidateID(r.ReceiptID); err != nil {
		return nil, err
	}
	var request Address
	if r.Request != nil {
		request = *r.Request
	}
	e := encoder{buf: make([]byte, 0, PaymentReceiptSpace)}
	e.fixed(r.Merchant[:])
	e.fixed(r.Payer[:])
	e.fixed(r.Asset[:])
	e.u64(r.Amount)
	e.fixed(request[:])
	e.u8(r.Bump)
	e.str(r.ReceiptID)
	e.i64(r.Timestamp)
	return &Record{Address: r.Address, Kind: KindPaymentReceipt, Data: e.buf}, nil
}

func DecodePaymentReceipt(rec *Record) (*PaymentReceipt, error) {
	if err := expectKind(rec, KindPaymentReceipt); err != nil {
		return nil, err
	}
	d := decoder{buf: rec.Data}
	r := &PaymentReceipt{Address: rec.Address}
	r.Merchant = d.fixed32()
	r.Payer = d.fixed32()
	r.Asset = d.fixed32()
	r.Amount = d.u64()
	request := Address(d.fixed32())
	r.Bump = d.u8()
	r.ReceiptID = d.str(MaxIDLen)
	r.Timestamp = d.i64()
	if err := d.finish(); err != nil {
		return nil, err
	}
	if !request.IsZero() {
		r.Request = &request
	}
	return r, nil
}
