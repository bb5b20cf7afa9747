package xuiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"xui-vpn-bot/internal/constants"
	"xui-vpn-bot/internal/models"
)

// ErrRealityMisconfigured is returned when the inbound uses reality
// security but the panel is missing the SNI, public key or short ID. The
// message is meant for direct display to an end user: this is an
// administrator-side misconfiguration, not a missing account.
var ErrRealityMisconfigured = errors.New("incomplete REALITY settings in the panel, please contact the administrator")

// BuildLink derives a shareable connection URI for the client with the
// given email. The domain comes from local configuration, everything else
// from the inbound's transport and security settings.
func (c *Client) BuildLink(ctx context.Context, label string) (string, error) {
	c.logger.Infof("Building connection link for %q", label)

	record, err := c.GetUser(ctx, label)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Errorf("Cannot build link: client %q not found", label)
		} else {
			c.logger.Errorf("Cannot build link for %q: %v", label, err)
		}
		return "", err
	}
	if record.ID == "" {
		c.logger.Errorf("Cannot build link: client %q has no UUID", label)
		return "", fmt.Errorf("client %q has no UUID", label)
	}

	inbound, err := c.getInbound(ctx, false)
	if err != nil {
		c.logger.Errorf("Cannot build link for %q: failed to fetch inbound %d: %v", label, c.cfg.InboundID, err)
		return "", err
	}

	var stream models.StreamSettings
	if err := json.Unmarshal([]byte(inbound.StreamSettings), &stream); err != nil {
		c.logger.Errorf("Failed to parse stream settings of inbound %d: %v", inbound.ID, err)
		return "", fmt.Errorf("failed to parse stream settings: %w", err)
	}

	protocol := inbound.Protocol
	if protocol == "" {
		protocol = "vless"
	}
	port := inbound.Port
	if port == 0 {
		port = 443
	}
	network := stream.Network
	if network == "" {
		network = "tcp"
	}

	var link strings.Builder
	fmt.Fprintf(&link, "%s://%s@%s:%d?type=%s", protocol, record.ID, c.cfg.Domain, port, network)

	if stream.Security == "reality" {
		reality := stream.RealitySettings

		sni := firstNonEmpty(reality.ServerNames)
		if sni == "" {
			sni = strings.SplitN(reality.Dest, ":", 2)[0]
		}
		pbk := reality.Settings.PublicKey
		sid := firstNonEmpty(reality.ShortIDs)
		fp := reality.Settings.Fingerprint
		if fp == "" {
			fp = constants.DefaultFingerprint
		}

		if sni == "" || pbk == "" || sid == "" {
			c.logger.Errorf("Cannot build REALITY link for inbound %d: SNI, public key or short ID missing in panel settings", inbound.ID)
			return "", ErrRealityMisconfigured
		}

		fmt.Fprintf(&link, "&security=reality&fp=%s&pbk=%s&sni=%s&sid=%s", fp, pbk, sni, sid)
	}

	flow := record.Flow
	if flow == "" {
		flow = constants.DefaultFlow
	}
	fmt.Fprintf(&link, "&flow=%s", flow)

	fmt.Fprintf(&link, "#%s_%s", c.botName, record.Email)

	c.logger.Infof("Built connection link for %q", label)
	return link.String(), nil
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
