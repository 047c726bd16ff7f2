package reputation

import (
	"fmt"
	"math/bits"
	"strings"

	"edgeguard/ipaddresses"
)

// networkTrie is a binary trie of IPv4 prefixes. A lookup walks at most 32 nodes.
type networkTrie struct {
	root *trieNode
	size int
}

type trieNode struct {
	match bool
	one   *trieNode
	zero  *trieNode
}

// newNetworkTrie builds a trie from addresses ("1.2.3.4") and CIDR blocks ("10.0.0.0/8").
func newNetworkTrie(networks []string) (t *networkTrie, err error) {
	t = &networkTrie{root: &trieNode{}}
	for _, n := range networks {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !strings.Contains(n, "/") {
			n += "/32"
		}

		prefix, mask, perr := ipaddresses.ParseCIDR(n)
		if perr != nil {
			err = fmt.Errorf("invalid blocked network: %w", perr)
			return
		}

		t.insert(prefix, bits.OnesCount32(mask))
	}
	return
}

func (t *networkTrie) insert(prefix uint32, depth int) {
	node := t.root
	for i := 0; i < depth; i++ {
		if node.match {
			return
		}

		if bitAt(prefix, i) == 1 {
			if node.one == nil {
				node.one = &trieNode{}
			}
			node = node.one
		} else {
			if node.zero == nil {
				node.zero = &trieNode{}
			}
			node = node.zero
		}
	}

	if !node.match {
		node.match = true
		t.size++
	}
}

// contains reports whether sourceID is an IPv4 address inside any inserted prefix.
func (t *networkTrie) contains(sourceID string) bool {
	if t == nil || t.size == 0 {
		return false
	}

	ip, err := ipaddresses.ParseIPAddress(sourceID)
	if err != nil {
		return false
	}

	node := t.root
	for i := 0; i < 32; i++ {
		if node.match {
			return true
		}

		if bitAt(ip, i) == 1 {
			node = node.one
		} else {
			node = node.zero
		}
		if node == nil {
			return false
		}
	}

	return node.match
}

// Returns the value of the bit at index i, counting from the most significant bit.
func bitAt(num uint32, i int) uint32 {
	return (num >> uint(31-i)) & 1
}
