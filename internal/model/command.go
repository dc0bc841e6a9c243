package model

// SignedCommand is the payload a relay accepts. It is built per request and never stored.
type SignedCommand struct {
	Pubkey    string `json:"pubkey"`
	Signature string `json:"signature"`
	Command   string `json:"command"`
}
