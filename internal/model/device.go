package model

// Device is a client-local identity: the server is stateless about devices
// beyond echoing device_id.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FallbackDeviceName derives a display name when the device did not send
// one: the last 5 characters of the id (typically the MAC tail).
func FallbackDeviceName(id string) string {
	tail := id
	if len(id) > 5 {
		tail = id[len(id)-5:]
	}
	return "Device " + tail
}
