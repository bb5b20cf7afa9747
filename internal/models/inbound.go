package models

// Inbound represents a 3x-ui inbound configuration as returned by the
// panel API. Settings and StreamSettings are JSON-encoded strings.
type Inbound struct {
	ID             int    `json:"id"`
	Remark         string `json:"remark"`
	Enable         bool   `json:"enable"`
	Port           int    `json:"port"`
	Protocol       string `json:"protocol"`
	Settings       string `json:"settings"`
	StreamSettings string `json:"streamSettings"`
}

// StreamSettings holds the transport part of an inbound configuration.
type StreamSettings struct {
	Network         string          `json:"network"`
	Security        string          `json:"security"`
	RealitySettings RealitySettings `json:"realitySettings"`
}

// RealitySettings holds the reality security parameters of an inbound.
type RealitySettings struct {
	Dest        string              `json:"dest"`
	ServerNames []string            `json:"serverNames"`
	ShortIDs    []string            `json:"shortIds"`
	Settings    RealityInnerSetting `json:"settings"`
}

// RealityInnerSetting holds the key material nested inside reality settings.
type RealityInnerSetting struct {
	PublicKey   string `json:"publicKey"`
	Fingerprint string `json:"fingerprint"`
}
