package dnssd

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures gateway advertising.
type AdvertiserConfig struct {
	// Interface selects one network interface. Empty means all.
	Interface string

	// TTL is the DNS record TTL. Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: 120 * time.Second}
}

// Advertiser publishes one gateway on the local network.
type Advertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	info   GatewayInfo
}

// NewAdvertiser creates an Advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{config: config}
}

func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise registers the gateway service. A second call replaces the
// previous registration.
func (a *Advertiser) Advertise(info GatewayInfo) error {
	if err := info.normalize(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.Name,
		ServiceType,
		Domain,
		int(info.Port),
		encodeTXT(&info),
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return err
	}
	a.server = server
	a.info = info
	return nil
}

// SetDeviceCount republishes the TXT records with a new responder count,
// typically after a discovery run.
func (a *Advertiser) SetDeviceCount(n int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return ErrNotFound
	}
	a.info.DeviceCount = n
	a.server.SetText(encodeTXT(&a.info))
	return nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Gateway is one discovered gateway service.
type Gateway struct {
	GatewayInfo

	// Host is the advertised hostname.
	Host string

	// Addresses are the resolved IPv4 and IPv6 addresses as strings.
	Addresses []string
}

// BrowserConfig configures gateway browsing.
type BrowserConfig struct {
	// Interface selects one network interface. Empty means all.
	Interface string
}

// Browse watches the network for gateways. Services are aggregated by
// instance name so addresses seen on multiple interfaces merge into one
// entry. The channel closes when ctx ends.
func Browse(ctx context.Context, config BrowserConfig) (<-chan *Gateway, error) {
	out := make(chan *Gateway)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	var opts []zeroconf.ClientOption
	if config.Interface != "" {
		if iface, err := net.InterfaceByName(config.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	go func() {
		defer close(out)

		seen := make(map[string]*Gateway)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				gw := entryToGateway(entry)
				if gw == nil {
					continue
				}
				if existing, found := seen[gw.Name]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, gw.Addresses)
					continue
				}
				seen[gw.Name] = gw
				select {
				case out <- gw:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := seen[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(seen, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindByScope returns the first gateway advertising the given scope.
func FindByScope(ctx context.Context, config BrowserConfig, scope string) (*Gateway, error) {
	results, err := Browse(ctx, config)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case gw, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if gw.Scope == scope {
				return gw, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func entryToGateway(entry *zeroconf.ServiceEntry) *Gateway {
	info, err := decodeTXT(entry.Text)
	if err != nil {
		return nil
	}
	info.Name = entry.Instance
	info.Port = uint16(entry.Port)

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return &Gateway{
		GatewayInfo: *info,
		Host:        entry.HostName,
		Addresses:   addrs,
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, more []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range more {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the entry's addresses from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
