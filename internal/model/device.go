package model

// Device is a registered remote machine plus its PIN-sealed signing key.
type Device struct {
	Pubkey           string `json:"pubkey"`
	DeviceName       string `json:"deviceName"`
	RelayURL         string `json:"relayUrl"`
	EncryptedPrivKey string `json:"encryptedPrivKey"`
}

// Clone returns an independent copy of d.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

// DeviceUpdate lists the fields an edit may replace; nil fields are kept.
type DeviceUpdate struct {
	DeviceName *string `json:"deviceName,omitempty"`
	RelayURL   *string `json:"relayUrl,omitempty"`
}
