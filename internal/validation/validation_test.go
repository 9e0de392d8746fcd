package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountryCode(t *testing.T) {
	code, ok := CountryCode(" mx ")
	assert.True(t, ok)
	assert.Equal(t, "MX", code)

	_, ok = CountryCode("XX")
	assert.False(t, ok)
	_, ok = CountryCode("MEX")
	assert.False(t, ok)
}

func TestCurrencyCode(t *testing.T) {
	code, ok := CurrencyCode("cop")
	assert.True(t, ok)
	assert.Equal(t, "COP", code)

	_, ok = CurrencyCode("ZZZ")
	assert.False(t, ok)
}

func TestEmail(t *testing.T) {
	email, ok := Email(" Ana.Perez@Example.COM ")
	assert.True(t, ok)
	assert.Equal(t, "ana.perez@example.com", email)

	_, ok = Email("not-an-email")
	assert.False(t, ok)
}

func TestNameAndText(t *testing.T) {
	_, ok := Name("   ", 10)
	assert.False(t, ok)
	name, ok := Name(" José ", 4)
	assert.True(t, ok)
	assert.Equal(t, "José", name)

	_, ok = Text(strings.Repeat("a", 501), 500)
	assert.False(t, ok)
	_, ok = Text("", 500)
	assert.True(t, ok)
}
