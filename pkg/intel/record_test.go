package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain domain", input: "example.com", want: "example.com"},
		{name: "uppercase", input: "EXAMPLE.COM", want: "example.com"},
		{name: "https scheme", input: "https://example.com", want: "example.com"},
		{name: "http scheme", input: "http://example.com", want: "example.com"},
		{name: "www prefix", input: "www.example.com", want: "example.com"},
		{name: "scheme and www", input: "https://www.example.com/", want: "example.com"},
		{name: "trailing slashes", input: "example.com//", want: "example.com"},
		{name: "surrounding whitespace", input: "  example.com  ", want: "example.com"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDomain(tt.input))
		})
	}
}

func TestRecordValid(t *testing.T) {
	assert.True(t, Record{SourceDomain: "example.com", CryptoAddress: "bc1qabc"}.Valid())
	assert.False(t, Record{SourceDomain: "", CryptoAddress: "bc1qabc"}.Valid())
	assert.False(t, Record{SourceDomain: "example.com", CryptoAddress: "   "}.Valid())
	assert.False(t, Record{}.Valid())

	// A domain that normalizes to nothing is as invalid as a missing one.
	assert.False(t, Record{SourceDomain: "https://", CryptoAddress: "bc1qabc"}.Valid())
}

func TestChainTagDefaultsToBTC(t *testing.T) {
	assert.Equal(t, ChainBTC, Record{}.ChainTag())
	assert.Equal(t, ChainBTC, Record{Chain: "  "}.ChainTag())
	assert.Equal(t, ChainETH, Record{Chain: "ETH"}.ChainTag())
	assert.Equal(t, "sol", Record{Chain: "sol"}.ChainTag())
}

func TestIPOrUnknown(t *testing.T) {
	assert.Equal(t, "1.2.3.4", Record{SourceDomainIP: "1.2.3.4"}.IPOrUnknown())
	assert.Equal(t, UnknownIP, Record{}.IPOrUnknown())
	assert.Equal(t, UnknownIP, Record{SourceDomainIP: "unknown ip"}.IPOrUnknown())

	assert.True(t, Record{SourceDomainIP: "1.2.3.4"}.HasResolvedIP())
	assert.False(t, Record{SourceDomainIP: UnknownIP}.HasResolvedIP())
	assert.False(t, Record{}.HasResolvedIP())
}

func TestSplitDomainList(t *testing.T) {
	assert.Nil(t, SplitDomainList(""))
	assert.Nil(t, SplitDomainList("  ,  "))
	assert.Equal(t,
		[]string{"a.com", "b.com"},
		SplitDomainList("https://a.com, WWW.B.COM"))
}

func TestSplitAddressList(t *testing.T) {
	assert.Nil(t, SplitAddressList(""))
	assert.Nil(t, SplitAddressList("  ,  "))
	assert.Equal(t,
		[]string{"bc1qfirst", "bc1qsecond"},
		SplitAddressList("bc1qfirst, bc1qsecond"))

	// Address case is significant on some chains.
	assert.Equal(t, []string{"0xAbC"}, SplitAddressList(" 0xAbC "))
}

func TestSearchTextUsesChainTag(t *testing.T) {
	r := Record{SourceDomain: "Example.com", CryptoAddress: "bc1qabc"}
	text := r.SearchText()
	assert.Contains(t, text, "example.com")

	// The empty chain column searches as its btc default.
	assert.Contains(t, text, ChainBTC)
}
