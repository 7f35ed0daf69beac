package server

import (
	"fmt"
	"net"
	"time"

	"github.com/netopshub/netopshub/pkg/collectors/poll"
	"github.com/netopshub/netopshub/pkg/model"
)

var demoDeviceKinds = []struct {
	typ    model.DeviceType
	vendor model.Vendor
}{
	{model.DeviceTypeRouter, model.VendorCisco},
	{model.DeviceTypeSwitch, model.VendorArista},
	{model.DeviceTypeFirewall, model.VendorPaloAlto},
	{model.DeviceTypeAccessPoint, model.VendorMeraki},
}

// ScanSubnet simulates an SNMP/LLDP discovery sweep of subnet: it
// synthesizes one device per demo device kind, adds each to the
// topology graph, and registers it as a poll target so subsequent
// /metrics/collect calls have something to poll. Returns the number
// of devices discovered. Exported so cmd/netopshub's "discover"
// subcommand can drive the same path outside the HTTP API.
func (s *Server) ScanSubnet(subnet, community string) (int, error) {
	base, err := demoAddressBase(subnet)
	if err != nil {
		return 0, err
	}
	if community == "" {
		community = "public"
	}

	now := time.Now().UTC()
	for i, kind := range demoDeviceKinds {
		addr := fmt.Sprintf("%s.%d", base, i+10)
		id := fmt.Sprintf("%s-%s-%d", kind.typ, kind.vendor, i+1)

		device := model.Device{
			ID: id, Hostname: id, Address: addr,
			Type: kind.typ, Vendor: kind.vendor,
			DiscoveredAt: now, LastSeen: now,
		}
		s.graph.AddDevice(device)

		if s.pollCollector != nil {
			_ = s.pollCollector.RegisterTarget(id, addr, poll.ProtocolV2c, poll.AuthParams{Community: community}, 0, 2, []string{"Gi0/0", "Gi0/1"})
		}
	}

	return len(demoDeviceKinds), nil
}

// demoAddressBase returns the first three octets of subnet's network
// address, or a sane fallback if subnet does not parse.
func demoAddressBase(subnet string) (string, error) {
	ip, _, err := net.ParseCIDR(subnet)
	if err != nil {
		return "10.0.0", nil
	}
	v4 := ip.To4()
	if v4 == nil {
		return "10.0.0", nil
	}
	return fmt.Sprintf("%d.%d.%d", v4[0], v4[1], v4[2]), nil
}
