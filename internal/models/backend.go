package models

// BackendResponse is the backend's answer to one request, correlated by
// request ID on the device's response topic.
type BackendResponse struct {
	RequestID string       `json:"request_id"`
	Status    string       `json:"status"`
	Error     string       `json:"error,omitempty"`
	Users     []NearbyUser `json:"users,omitempty"`
}
