package encoding

import (
	"fmt"
	"strings"
	"testing"
)

func TestDecodePath(t *testing.T) {
	// Arrange
	type testcase struct {
		inputVal string
		expected string
	}
	tests := []testcase{
		{`/hello%20world`, `/hello world`},
		{`/%2Eenv`, `/.env`},
		{`/%2eenv`, `/.env`},
		{`/%252Egit/config`, `/.git/config`},
		{`/%25252Egit`, `/.git`},
		{`/%2525252Egit`, `/%2Egit`},
		{`/a+b`, `/a+b`},
		{`/hello%ggworld`, `/hello%ggworld`},
		{`/%%2e`, `/%.`},
		{`/%2%2e`, `/%2.`},
		{`/x%`, `/x%`},
		{`/x%2`, `/x%2`},
		{`/x%6ax`, `/xjx`},
		{`%`, `%`},
		{``, ``},
	}

	// Act and assert
	var b strings.Builder
	for i, test := range tests {
		// Act
		s := DecodePath(test.inputVal)

		// Assert
		if s != test.expected {
			fmt.Fprintf(&b, "Test %v, input %v. Expected: %v. Actual: %v\n", i+1, test.inputVal, test.expected, s)
		}
	}

	if b.Len() > 0 {
		t.Fatalf("%s", b.String())
	}
}
