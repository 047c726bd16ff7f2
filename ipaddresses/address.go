package ipaddresses

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const errInvalidIPAddrFmt = "invalid IP address: %s"
const errInvalidCIDRFmt = "invalid CIDR Notation: %s"

// UnknownSource is the source identifier used when no usable client address is available.
const UnknownSource = "unknown"

// ParseIPAddress converts an IPv4 address from octet notation (*.*.*.*) to its 32-bit unsigned integer value.
func ParseIPAddress(ipAddr string) (ip uint32, err error) {
	octets := strings.Split(ipAddr, ".")
	if len(octets) != 4 {
		err = fmt.Errorf(errInvalidIPAddrFmt, ipAddr)
		return
	}

	for _, octet := range octets {
		var b int

		b, err = strconv.Atoi(octet)
		if err != nil || b < 0 || b > 255 {
			err = fmt.Errorf(errInvalidIPAddrFmt, ipAddr)
			return
		}

		ip <<= 8
		ip |= uint32(b)
	}

	return ip, nil
}

// ParseCIDR converts an IPv4 CIDR notation into a 32-bit prefix and its corresponding mask.
func ParseCIDR(cidr string) (prefix uint32, mask uint32, err error) {
	splitted := strings.Split(cidr, "/")
	if len(splitted) != 2 {
		err = fmt.Errorf(errInvalidCIDRFmt, cidr)
		return
	}

	ipAddr, suffix := splitted[0], splitted[1]
	ip, err := ParseIPAddress(ipAddr)
	if err != nil {
		err = fmt.Errorf(errInvalidCIDRFmt, cidr)
		return
	}

	bits, err := strconv.Atoi(suffix)
	if err != nil || bits < 0 || bits > 32 {
		err = fmt.Errorf(errInvalidCIDRFmt, cidr)
		return
	}

	mask = uint32(0xffffffff) << uint32(32-bits)
	prefix = ip & mask
	return
}

// ToOctets converts a 32-bit unsigned integer into "*.*.*.*" notation.
func ToOctets(ip uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", ip>>24, (ip>>16)&0xff, (ip>>8)&0xff, ip&0xff)
}

// InAddressSpace checks if an IPv4 address is part of the address space defined by a CIDR notation.
func InAddressSpace(ipAddr string, cidr string) (result bool, err error) {
	ip, err := ParseIPAddress(ipAddr)
	if err != nil {
		return
	}

	prefix, mask, err := ParseCIDR(cidr)
	if err != nil {
		return
	}

	result = (ip & mask) == prefix
	return
}

// NormalizeSourceID turns a raw client address ("1.2.3.4", "1.2.3.4:5678", "[::1]:80", " 001.2.3.4 ")
// into the canonical identifier used to key reputation, rate and attack records.
// Anything that is not an IP address is lower-cased and trimmed; an empty input yields UnknownSource.
func NormalizeSourceID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return UnknownSource
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")

	if ip, err := ParseIPAddress(s); err == nil {
		return ToOctets(ip)
	}

	if ip := net.ParseIP(s); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
		return ip.String()
	}

	return strings.ToLower(s)
}

// ClientAddress picks the address a request should be attributed to.
// Forwarding headers are only honored when the direct peer is inside one of the trusted proxy CIDRs.
func ClientAddress(remoteAddr string, forwardedFor string, realIP string, trustedProxies []string) string {
	peer := NormalizeSourceID(remoteAddr)
	if !isTrusted(peer, trustedProxies) {
		return peer
	}

	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if first != "" {
			return NormalizeSourceID(first)
		}
	}

	if realIP != "" {
		return NormalizeSourceID(realIP)
	}

	return peer
}

func isTrusted(peer string, trustedProxies []string) bool {
	for _, cidr := range trustedProxies {
		if in, err := InAddressSpace(peer, cidr); err == nil && in {
			return true
		}
	}
	return false
}
