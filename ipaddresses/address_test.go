package ipaddresses

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIPAddressGood(t *testing.T) {
	assert := assert.New(t)

	// Act
	ip, err := ParseIPAddress("192.168.0.1")

	// Assert
	assert.Nil(err)
	assert.Equal(uint32(3232235521), ip)
}

// Strict about notation: no CIDR suffix, no abbreviations like "192.168.1".
func TestParseIPAddressBad(t *testing.T) {
	assert := assert.New(t)

	for _, bad := range []string{"10.0.0.0/8", "256.256.256.256", "0.0.0.0.0", "O.O.O.O", "192.168.1", ""} {
		_, err := ParseIPAddress(bad)
		assert.Error(err, "input %q", bad)
	}
}

func TestParseCIDRGood(t *testing.T) {
	assert := assert.New(t)

	// Act
	prefix, mask, err := ParseCIDR("192.168.7.9/16")

	// Assert
	assert.Nil(err)
	assert.Equal(uint32(0xc0a80000), prefix)
	assert.Equal(uint32(0xffff0000), mask)
}

func TestParseCIDRBad(t *testing.T) {
	assert := assert.New(t)

	for _, bad := range []string{"10.0.0.0", "10.0.0.0/8/8", "10.0.0.0/33", "10.0.0.0/x", "10/8"} {
		_, _, err := ParseCIDR(bad)
		assert.Error(err, "input %q", bad)
	}
}

func TestInAddressSpace(t *testing.T) {
	assert := assert.New(t)

	in, err := InAddressSpace("192.168.0.1", "192.168.0.0/16")
	assert.Nil(err)
	assert.True(in)

	in, err = InAddressSpace("192.168.0.0", "192.168.128.0/17")
	assert.Nil(err)
	assert.False(in)

	_, err = InAddressSpace("::1", "192.168.0.0/16")
	assert.Error(err)
}

func TestToOctets(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("192.168.0.1", ToOctets(0xc0a80001))
	assert.Equal("0.0.0.0", ToOctets(0))
	assert.Equal("255.255.255.255", ToOctets(0xffffffff))
}

func TestNormalizeSourceID(t *testing.T) {
	assert := assert.New(t)

	cases := map[string]string{
		"1.2.3.4":         "1.2.3.4",
		" 1.2.3.4 ":       "1.2.3.4",
		"1.2.3.4:5678":    "1.2.3.4",
		"[::1]:80":        "::1",
		"2001:DB8::1":     "2001:db8::1",
		"::ffff:10.0.0.1": "10.0.0.1",
		"":                UnknownSource,
		"Some-Host":       "some-host",
	}

	for in, expected := range cases {
		assert.Equal(expected, NormalizeSourceID(in), "input %q", in)
	}
}

func TestClientAddressIgnoresForwardingFromUntrustedPeer(t *testing.T) {
	assert := assert.New(t)

	// Act
	addr := ClientAddress("203.0.113.7:4431", "9.9.9.9", "8.8.8.8", []string{"10.0.0.0/8"})

	// Assert
	assert.Equal("203.0.113.7", addr)
}

func TestClientAddressHonorsForwardingFromTrustedProxy(t *testing.T) {
	assert := assert.New(t)

	// Act
	fromXFF := ClientAddress("10.1.2.3:4431", " 9.9.9.9 , 10.1.2.3", "8.8.8.8", []string{"10.0.0.0/8"})
	fromRealIP := ClientAddress("10.1.2.3:4431", "", "8.8.8.8", []string{"10.0.0.0/8"})
	noHeaders := ClientAddress("10.1.2.3:4431", "", "", []string{"10.0.0.0/8"})

	// Assert
	assert.Equal("9.9.9.9", fromXFF)
	assert.Equal("8.8.8.8", fromRealIP)
	assert.Equal("10.1.2.3", noHeaders)
}
