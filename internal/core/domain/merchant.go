package domain

// Merchant is created once per owner and never changes afterwards.
type Merchant struct {
	Address     Address  `json:"address"`
	Owner       Identity `json:"owner"`
	DisplayName string   `json:"display_name,omitempty"`
	Bump        uint8    `json:"bump"`
}

// Record encodes the merchant for storage. An empty display name is stored
// as absent.
func (m *Merchant) Record() (*Record, error) {
	if len(m.DisplayName) > MaxIDLen {
		return nil, ErrDisplayNameTooLong
	}
	e := encoder{buf: make([]byte, 0, MerchantSpace)}
	e.fixed(m.Owner[:])
	e.str(m.DisplayName)
	e.u8(m.Bump)
	return &Record{Address: m.Address, Kind: KindMerchant, Data: e.buf}, nil
}

// DecodeMerchant reads a merchant out of rec.
func DecodeMerchant(rec *Record) (*Merchant, error) {
	if err := expectKind(rec, KindMerchant); err != nil {
		return nil, err
	}
	d := decoder{buf: rec.Data}
	m := &Merchant{Address: rec.Address}
	m.Owner = d.fixed32()
	m.DisplayName = d.str(MaxIDLen)
	m.Bump = d.u8()
	if err := d.finish(); err != nil {
		return nil, err
	}
	return m, nil
}
