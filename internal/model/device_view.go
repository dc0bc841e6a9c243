package model

// DeviceView hides the sealed key when returning devices to clients.
type DeviceView struct {
	Pubkey           string `json:"pubkey"`
	DeviceName       string `json:"deviceName"`
	RelayURL         string `json:"relayUrl"`
	EncryptedPrivKey string `json:"encryptedPrivKey"`
}
