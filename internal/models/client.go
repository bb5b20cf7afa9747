package models

// ClientRecord represents one provisioned VPN account inside an inbound.
// Up and Down are maintained by the panel and ignored on writes.
type ClientRecord struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Enable     bool   `json:"enable"`
	ExpiryTime int64  `json:"expiryTime"`
	TotalGB    int64  `json:"totalGB"`
	Up         int64  `json:"up,omitempty"`
	Down       int64  `json:"down,omitempty"`
	Flow       string `json:"flow"`
}

// ClientSettings is the structure embedded as a JSON string in the
// inbound's settings field.
type ClientSettings struct {
	Clients []ClientRecord `json:"clients"`
}
