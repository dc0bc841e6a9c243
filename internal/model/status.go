package model

import "time"

const (
	DeviceStatusOnline  = "ONLINE"
	DeviceStatusOffline = "OFFLINE"
)

// DeviceStatus is the result of one last-active poll.
type DeviceStatus struct {
	Pubkey     string     `json:"pubkey"`
	DeviceName string     `json:"deviceName"`
	Status     string     `json:"status"`
	LastActive *time.Time `json:"lastActive,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Online reports whether the poll found the device recently active.
func (s DeviceStatus) Online() bool {
	return s.Status == DeviceStatusOnline
}
