package types

// AccountProfile records which relay a local device is registered with.
type AccountProfile struct {
	ServerURL      string         `json:"server_url"`
	Username       UserID         `json:"username"`
	Device         DeviceID       `json:"device"`
	RegistrationID RegistrationID `json:"registration_id"`
}
