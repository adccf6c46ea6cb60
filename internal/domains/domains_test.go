package domains

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteListCreatesTable(t *testing.T) {
	path, err := WriteList([]DomainRecord{
		calendarDomain("example.com", "2027-03-15"),
		calendarDomain("test.org", "2027-06-20"),
	}, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "# Domain List")
	assert.Contains(t, content, "Last updated:")
	assert.Contains(t, content, "| Domain | Expires | Expired | Locked | Auto-Renew | NC DNS |")
	assert.Contains(t, content, "example.com")
	assert.Contains(t, content, "test.org")
}

func TestWriteListSortsByName(t *testing.T) {
	path, err := WriteList([]DomainRecord{
		calendarDomain("zebra.com", "2027-03-15"),
		calendarDomain("apple.com", "2027-06-20"),
		calendarDomain("microsoft.com", "2027-09-10"),
	}, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	apple := strings.Index(content, "apple.com")
	microsoft := strings.Index(content, "microsoft.com")
	zebra := strings.Index(content, "zebra.com")
	assert.True(t, apple < microsoft && microsoft < zebra, "rows out of order:\n%s", content)
}

func TestWriteListMarksFlags(t *testing.T) {
	path, err := WriteList([]DomainRecord{
		{Name: "example.com", Expires: "2027-03-15", IsExpired: true, IsLocked: true, AutoRenew: true, IsOurDNS: true},
		{Name: "bare.com"},
	}, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var exampleLine, bareLine string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, "example.com") {
			exampleLine = line
		}
		if strings.Contains(line, "bare.com") {
			bareLine = line
		}
	}
	assert.Equal(t, "| example.com | 2027-03-15 | ✅ | ✅ | ✅ | ✅ |", exampleLine)
	// Missing expiry renders as N/A, false flags as blanks.
	assert.Equal(t, "| bare.com | N/A |  |  |  |  |", bareLine)
}

func TestParseDomainList(t *testing.T) {
	domains, err := ParseDomainList(`[{"name": "example.com", "expires": "2027-03-15", "isLocked": true}]`)
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "example.com", domains[0].Name)
	assert.True(t, domains[0].IsLocked)
}

func TestParseDomainListDoubleEncoded(t *testing.T) {
	domains, err := ParseDomainList(`"[{\"name\": \"example.com\"}]"`)
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "example.com", domains[0].Name)
}

func TestParseDomainListEmpty(t *testing.T) {
	domains, err := ParseDomainList("")
	require.NoError(t, err)
	assert.Empty(t, domains)
}

func TestParseDomainListInvalid(t *testing.T) {
	_, err := ParseDomainList("{nope")
	assert.Error(t, err)
}
