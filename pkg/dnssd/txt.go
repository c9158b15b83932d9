// Package dnssd publishes and finds RDMnet-style gateways on the local
// network with DNS-SD. A gateway bridges one or more DMX512 lines to IP;
// advertising it lets controllers on the LAN locate bus ports without
// manual configuration.
package dnssd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rdm-protocol/rdm-go/pkg/uid"
)

// Service constants.
const (
	// ServiceType is the DNS-SD service gateways register under.
	ServiceType = "_rdmnet._tcp"

	// Domain is the DNS-SD domain.
	Domain = "local."

	// DefaultPort is the gateway listener port.
	DefaultPort = 5569

	// TxtVers is the TXT record schema version this package speaks.
	TxtVers = 1

	// DefaultScope groups gateways that have not been assigned one.
	DefaultScope = "default"
)

// Decode errors.
var (
	ErrBadTXT   = errors.New("dnssd: malformed TXT records")
	ErrNotFound = errors.New("dnssd: service not found")
)

// GatewayInfo describes one advertised gateway.
type GatewayInfo struct {
	// Name is the DNS-SD instance name.
	Name string

	// CID is the component identifier, a UUID. Generated when empty.
	CID string

	// Scope groups gateways under one controller domain.
	Scope string

	// UID is the gateway's controller UID on its bus.
	UID uid.UID

	// Model and Manufacturer label the product.
	Model        string
	Manufacturer string

	// DeviceCount is the number of responders behind the gateway.
	DeviceCount int

	// Port is the TCP listener port. Defaults to DefaultPort.
	Port uint16
}

// normalize fills defaults and validates the identifiers.
func (g *GatewayInfo) normalize() error {
	if g.Name == "" {
		return errors.New("dnssd: gateway name is required")
	}
	if g.CID == "" {
		g.CID = uuid.NewString()
	} else if _, err := uuid.Parse(g.CID); err != nil {
		return fmt.Errorf("dnssd: invalid cid: %w", err)
	}
	if g.Scope == "" {
		g.Scope = DefaultScope
	}
	if g.Port == 0 {
		g.Port = DefaultPort
	}
	return nil
}

// encodeTXT renders the gateway's TXT records as key=value strings.
func encodeTXT(g *GatewayInfo) []string {
	return []string{
		fmt.Sprintf("txtvers=%d", TxtVers),
		"cid=" + g.CID,
		"scope=" + g.Scope,
		"uid=" + g.UID.String(),
		"model=" + g.Model,
		"manuf=" + g.Manufacturer,
		fmt.Sprintf("devices=%d", g.DeviceCount),
	}
}

// decodeTXT parses key=value strings back into a GatewayInfo. Unknown keys
// are ignored so newer gateways stay readable.
func decodeTXT(txt []string) (*GatewayInfo, error) {
	kv := make(map[string]string, len(txt))
	for _, s := range txt {
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			continue
		}
		kv[k] = v
	}

	vers, err := strconv.Atoi(kv["txtvers"])
	if err != nil || vers != TxtVers {
		return nil, fmt.Errorf("%w: txtvers %q", ErrBadTXT, kv["txtvers"])
	}
	cid := kv["cid"]
	if _, err := uuid.Parse(cid); err != nil {
		return nil, fmt.Errorf("%w: cid %q", ErrBadTXT, cid)
	}
	g := &GatewayInfo{
		CID:          cid,
		Scope:        kv["scope"],
		Model:        kv["model"],
		Manufacturer: kv["manuf"],
	}
	if g.Scope == "" {
		g.Scope = DefaultScope
	}
	if s := kv["uid"]; s != "" {
		if g.UID, err = uid.Parse(s); err != nil {
			return nil, fmt.Errorf("%w: uid %q", ErrBadTXT, s)
		}
	}
	if s := kv["devices"]; s != "" {
		if g.DeviceCount, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("%w: devices %q", ErrBadTXT, s)
		}
	}
	return g, nil
}
