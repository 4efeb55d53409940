package domain

// Device is a registry entry. Secret is either the plain pre-shared key or a
// bcrypt hash of it and is never serialized.
type Device struct {
	ID     string `json:"device_id" yaml:"id"`
	Secret string `json:"-" yaml:"secret"`
}
