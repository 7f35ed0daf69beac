// Package model defines the canonical value types shared by every
// netopshub component: devices, metrics, alerts, flows, syslog
// messages, topology, compliance, SLA, and agent envelopes.
package model

import "time"

// DeviceType categorizes a network device.
type DeviceType string

const (
	DeviceTypeRouter             DeviceType = "router"
	DeviceTypeSwitch             DeviceType = "switch"
	DeviceTypeFirewall           DeviceType = "firewall"
	DeviceTypeLoadBalancer       DeviceType = "load-balancer"
	DeviceTypeWirelessController DeviceType = "wireless-controller"
	DeviceTypeAccessPoint        DeviceType = "access-point"
	DeviceTypeServer             DeviceType = "server"
	DeviceTypeUnknown            DeviceType = "unknown"
)

// Vendor categorizes the device's manufacturer.
type Vendor string

const (
	VendorCisco    Vendor = "cisco"
	VendorJuniper  Vendor = "juniper"
	VendorArista   Vendor = "arista"
	VendorMeraki   Vendor = "meraki"
	VendorPaloAlto Vendor = "palo_alto"
	VendorFortinet Vendor = "fortinet"
	VendorUnknown  Vendor = "unknown"
)

// InterfaceStatus is the admin or operational state of an Interface.
type InterfaceStatus string

const (
	InterfaceStatusUp        InterfaceStatus = "up"
	InterfaceStatusDown      InterfaceStatus = "down"
	InterfaceStatusAdminDown InterfaceStatus = "admin-down"
	InterfaceStatusUnknown   InterfaceStatus = "unknown"
)

// Interface describes one network interface owned by a Device.
type Interface struct {
	Name        string            `json:"name"`
	Index       int               `json:"index"`
	Description string            `json:"description,omitempty"`
	SpeedMbps   float64           `json:"speed_mbps,omitempty"`
	AdminStatus InterfaceStatus   `json:"admin_status"`
	OperStatus  InterfaceStatus   `json:"oper_status"`
	L3Address   string            `json:"l3_address,omitempty"`
	MAC         string            `json:"mac,omitempty"`
	VLAN        int               `json:"vlan,omitempty"`
	MTU         int               `json:"mtu,omitempty"`
	InOctets    uint64            `json:"in_octets"`
	OutOctets   uint64            `json:"out_octets"`
	InErrors    uint64            `json:"in_errors"`
	OutErrors   uint64            `json:"out_errors"`
	InDiscards  uint64            `json:"in_discards"`
	OutDiscards uint64            `json:"out_discards"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Device is a network-managed element. ID is immutable post-creation;
// Hostname+Address uniquely identify a device within a Site.
type Device struct {
	ID            string            `json:"id"`
	Hostname      string            `json:"hostname"`
	Address       string            `json:"address"`
	Type          DeviceType        `json:"type"`
	Vendor        Vendor            `json:"vendor"`
	Model         string            `json:"model,omitempty"`
	OSVersion     string            `json:"os_version,omitempty"`
	Serial        string            `json:"serial,omitempty"`
	Site          string            `json:"site,omitempty"`
	Interfaces    []Interface       `json:"interfaces,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
	DiscoveredAt  time.Time         `json:"discovered_at"`
	LastSeen      time.Time         `json:"last_seen"`
	UptimeSeconds int64             `json:"uptime_seconds"`
}

// Touch updates LastSeen and UptimeSeconds, the way a successful poll
// refreshes a device's liveness without mutating its identity fields.
func (d *Device) Touch(now time.Time, uptimeSeconds int64) {
	d.LastSeen = now
	d.UptimeSeconds = uptimeSeconds
}
