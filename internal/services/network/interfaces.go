// Package network enumerates the addresses an Art-Net sender can use to
// reach the receiver.
package network

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// InterfaceOption is one address the receiver is reachable on.
type InterfaceOption struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Broadcast     string `json:"broadcast"`
	Endpoint      string `json:"endpoint"`
	Description   string `json:"description"`
	InterfaceType string `json:"interfaceType"` // "ethernet", "wifi", "other", "localhost", "global"
}

// InterfaceType guesses the type of a network interface from its name.
func InterfaceType(ifaceName string) string {
	name := strings.ToLower(ifaceName)

	if strings.HasPrefix(name, "eth") ||
		strings.HasPrefix(name, "enp") ||
		strings.HasPrefix(name, "eno") ||
		strings.HasPrefix(name, "ens") ||
		strings.HasPrefix(name, "enx") ||
		strings.HasPrefix(name, "end") {
		return "ethernet"
	}

	if strings.HasPrefix(name, "wlan") ||
		strings.HasPrefix(name, "wl") ||
		strings.Contains(name, "wifi") ||
		strings.Contains(name, "wireless") {
		return "wifi"
	}

	return "other"
}

func typeIcon(interfaceType string) string {
	switch interfaceType {
	case "wifi":
		return "📶"
	case "ethernet":
		return "🌐"
	case "localhost":
		return "🏠"
	case "global":
		return "🌍"
	default:
		return "📡"
	}
}

// calculateBroadcast computes the broadcast address from IP and netmask.
func calculateBroadcast(ip net.IP, mask net.IPMask) net.IP {
	if ip == nil || mask == nil {
		return nil
	}

	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}

	if len(mask) == 16 {
		mask = mask[12:16]
	}
	if len(mask) != 4 {
		return nil
	}

	broadcast := make(net.IP, 4)
	for i := 0; i < 4; i++ {
		broadcast[i] = ip4[i] | ^mask[i]
	}
	return broadcast
}

// ListenInterfaces lists the IPv4 addresses a receiver bound to bindAddr:port
// answers on. Physical interfaces come first (ethernet, wifi, other), then
// localhost, then the wildcard entry when bound to all interfaces.
func ListenInterfaces(bindAddr string, port int) ([]InterfaceOption, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	wildcard := bindAddr == "" || bindAddr == "0.0.0.0"
	portStr := strconv.Itoa(port)

	var ethernet, wifi, other []InterfaceOption
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			if !wildcard && ip4.String() != bindAddr {
				continue
			}

			broadcast := calculateBroadcast(ip4, ipNet.Mask)
			if broadcast == nil {
				continue
			}

			kind := InterfaceType(iface.Name)
			option := InterfaceOption{
				Name:          iface.Name,
				Address:       ip4.String(),
				Broadcast:     broadcast.String(),
				Endpoint:      net.JoinHostPort(ip4.String(), portStr),
				Description:   fmt.Sprintf("%s %s %s (broadcast %s)", typeIcon(kind), iface.Name, ip4, broadcast),
				InterfaceType: kind,
			}

			switch kind {
			case "ethernet":
				ethernet = append(ethernet, option)
			case "wifi":
				wifi = append(wifi, option)
			default:
				other = append(other, option)
			}
		}
	}

	options := make([]InterfaceOption, 0, len(ethernet)+len(wifi)+len(other)+2)
	options = append(options, ethernet...)
	options = append(options, wifi...)
	options = append(options, other...)

	if wildcard || strings.HasPrefix(bindAddr, "127.") {
		loopback := "127.0.0.1"
		if !wildcard {
			loopback = bindAddr
		}
		options = append(options, InterfaceOption{
			Name:          "localhost",
			Address:       loopback,
			Broadcast:     loopback,
			Endpoint:      net.JoinHostPort(loopback, portStr),
			Description:   fmt.Sprintf("%s Localhost (for testing only)", typeIcon("localhost")),
			InterfaceType: "localhost",
		})
	}

	if wildcard {
		options = append(options, InterfaceOption{
			Name:          "all",
			Address:       "0.0.0.0",
			Broadcast:     "255.255.255.255",
			Endpoint:      net.JoinHostPort("0.0.0.0", portStr),
			Description:   fmt.Sprintf("%s All interfaces, global broadcast", typeIcon("global")),
			InterfaceType: "global",
		})
	}

	return options, nil
}
