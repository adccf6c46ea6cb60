package domains

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCalendarMultipleMonths(t *testing.T) {
	content := `# 2027

## January

- 24: Namecheap - relation.to (Hibernate)

## February

- 21: Namecheap - hibernate.asia (Hibernate) -- do not renew

## March

- 16: Namecheap - nhibernate.org (Hibernate) -- do not renew
- 22: Namecheap - qbicc.org (Quarkus)
`
	cal := ParseCalendar(content)

	january := cal.Month("January")
	require.NotNil(t, january)
	require.Len(t, january.Entries, 1)
	assert.Equal(t, CalendarEntry{Day: 24, Description: "Namecheap - relation.to (Hibernate)"}, january.Entries[0])

	march := cal.Month("March")
	require.NotNil(t, march)
	require.Len(t, march.Entries, 2)
	assert.Equal(t, 16, march.Entries[0].Day)
	assert.Equal(t, 22, march.Entries[1].Day)
}

func TestParseCalendarPlaceholders(t *testing.T) {
	content := `# 2027

## May

- .

## June

- .
`
	cal := ParseCalendar(content)

	may := cal.Month("May")
	require.NotNil(t, may)
	require.Len(t, may.Entries, 1)
	assert.True(t, may.Entries[0].Placeholder)
}

func TestParseCalendarCustomSection(t *testing.T) {
	content := `# Calendar ....

## Monthly

- 22: do things

## January

- 24: Some event
`
	cal := ParseCalendar(content)

	monthly := cal.Month("Monthly")
	require.NotNil(t, monthly)
	require.Len(t, monthly.Entries, 1)
	assert.Equal(t, "do things", monthly.Entries[0].Description)
}

func TestParseCalendarEmpty(t *testing.T) {
	cal := ParseCalendar("# 2027\n")
	assert.Nil(t, cal.Month("January"))
}

func calendarDomain(name, expires string) DomainRecord {
	return DomainRecord{Name: name, Expires: expires, IsLocked: true, AutoRenew: true, IsOurDNS: true}
}

func TestMergeDomainsAddsExpiries(t *testing.T) {
	cal := newCalendar()
	MergeDomains(cal, []DomainRecord{
		calendarDomain("project1.com", "2027-03-15T00:00:00Z"),
		calendarDomain("test.org", "2027-06-20T00:00:00Z"),
	}, 2027)

	march := cal.Month("March")
	require.NotNil(t, march)
	require.Len(t, march.Entries, 1)
	assert.Equal(t, CalendarEntry{Day: 15, Description: "Domain expires: project1.com"}, march.Entries[0])

	june := cal.Month("June")
	require.NotNil(t, june)
	require.Len(t, june.Entries, 1)
	assert.Contains(t, june.Entries[0].Description, "test.org")
}

func TestMergeDomainsPreservesExistingEntries(t *testing.T) {
	cal := ParseCalendar("## March\n\n- 10: Team meeting\n- 16: Project deadline\n")
	MergeDomains(cal, []DomainRecord{
		calendarDomain("project1.com", "2027-03-15"),
	}, 2027)

	march := cal.Month("March")
	require.Len(t, march.Entries, 3)
}

func TestMergeDomainsSkipsDuplicates(t *testing.T) {
	cal := ParseCalendar("## March\n\n- 15: Domain expires: project1.com\n")
	MergeDomains(cal, []DomainRecord{
		calendarDomain("project1.com", "2027-03-15T00:00:00Z"),
	}, 2027)

	count := 0
	for _, entry := range cal.Month("March").Entries {
		if strings.Contains(entry.Description, "project1.com") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMergeDomainsSkipsMissingExpiry(t *testing.T) {
	cal := newCalendar()
	MergeDomains(cal, []DomainRecord{{Name: "project1.com"}}, 2027)

	for _, name := range monthNames {
		assert.Empty(t, cal.Month(name).Entries, name)
	}
}

func TestMergeDomainsFiltersByYear(t *testing.T) {
	cal := newCalendar()
	MergeDomains(cal, []DomainRecord{
		calendarDomain("example-2027.com", "2027-03-15"),
		calendarDomain("example-2028.com", "2028-03-15"),
	}, 2027)

	march := cal.Month("March")
	require.Len(t, march.Entries, 1)
	assert.Contains(t, march.Entries[0].Description, "example-2027.com")
}

func TestMergeDomainsCreatesAllTwelveMonths(t *testing.T) {
	cal := newCalendar()
	MergeDomains(cal, nil, 2027)

	assert.Len(t, cal.months, 12)
	assert.NotNil(t, cal.Month("January"))
	assert.NotNil(t, cal.Month("December"))
}

func TestFormatCalendarSortsEntriesByDay(t *testing.T) {
	cal := ParseCalendar(`## March

- 22: Namecheap - qbicc.org (Quarkus)
- 16: Namecheap - nhibernate.org (Hibernate)
- 15: Domain expires: project1.com
`)
	out := FormatCalendar(cal, 2027)

	assert.Contains(t, out, "# 2027")
	day15 := strings.Index(out, "- 15:")
	day16 := strings.Index(out, "- 16:")
	day22 := strings.Index(out, "- 22:")
	assert.True(t, day15 < day16 && day16 < day22, "entries out of order:\n%s", out)
}

func TestFormatCalendarSkipsEmptyMonths(t *testing.T) {
	cal := newCalendar()
	cal.month("January").Entries = []CalendarEntry{{Day: 24, Description: "Some event"}}
	cal.month("February")
	cal.month("March").Entries = []CalendarEntry{{Day: 15, Description: "Another event"}}

	out := FormatCalendar(cal, 2027)
	assert.Contains(t, out, "## January")
	assert.NotContains(t, out, "## February")
	assert.Contains(t, out, "## March")
}

func TestFormatCalendarPadsDays(t *testing.T) {
	cal := newCalendar()
	cal.month("January").Entries = []CalendarEntry{
		{Day: 5, Description: "Single digit day"},
		{Day: 15, Description: "Double digit day"},
	}

	out := FormatCalendar(cal, 2027)
	assert.Contains(t, out, "- 05: Single digit day")
	assert.Contains(t, out, "- 15: Double digit day")
}

func TestFormatCalendarMonthOrder(t *testing.T) {
	cal := newCalendar()
	cal.month("December").Entries = []CalendarEntry{{Day: 25, Description: "Event in December"}}
	cal.month("January").Entries = []CalendarEntry{{Day: 1, Description: "Event in January"}}

	out := FormatCalendar(cal, 2027)
	assert.Less(t, strings.Index(out, "## January"), strings.Index(out, "## December"))
}

func TestFormatCalendarCustomSectionsFirst(t *testing.T) {
	cal := ParseCalendar(`# 2027

## Monthly

- 22: do things

## January

- 24: Namecheap - relation.to (Hibernate)
`)
	MergeDomains(cal, []DomainRecord{
		calendarDomain("newdomain.com", "2027-03-15T00:00:00Z"),
		calendarDomain("anotherdomain.org", "2027-11-13T00:00:00Z"),
	}, 2027)

	out := FormatCalendar(cal, 2027)
	assert.Contains(t, out, "## Monthly")
	assert.Contains(t, out, "- 22: do things")
	assert.Contains(t, out, "- 15: Domain expires: newdomain.com")
	assert.Contains(t, out, "## November")
	assert.Contains(t, out, "- 13: Domain expires: anotherdomain.org")
	assert.Less(t, strings.Index(out, "## Monthly"), strings.Index(out, "## January"))
}

func TestUpdateCalendarsUsesTemplateForNewYear(t *testing.T) {
	dir := t.TempDir()
	template := `# Template

## January

- 01: New Year's Day
- 15: Monthly team sync

## March

- 17: St. Patrick's Day
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_template.md"), []byte(template), 0o644))

	updated, err := UpdateCalendars([]DomainRecord{
		calendarDomain("newdomain.com", "2028-06-15T00:00:00Z"),
	}, dir)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Contains(t, updated[0], "2028.md")

	content, err := os.ReadFile(filepath.Join(dir, "2028.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "- 01: New Year's Day")
	assert.Contains(t, string(content), "- 17: St. Patrick's Day")
	assert.Contains(t, string(content), "## June")
	assert.Contains(t, string(content), "Domain expires: newdomain.com")
}

func TestUpdateCalendarsPrefersExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_template.md"),
		[]byte("# Template\n\n## Monthly\n\n- 01: From template"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2029.md"),
		[]byte("# 2029\n\n## Monthly\n\n- 01: Existing entry"), 0o644))

	_, err := UpdateCalendars([]DomainRecord{
		calendarDomain("test.com", "2029-03-15T00:00:00Z"),
	}, dir)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "2029.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Existing entry")
	assert.NotContains(t, string(content), "From template")
}

func TestUpdateCalendarsWithoutTemplate(t *testing.T) {
	dir := t.TempDir()

	_, err := UpdateCalendars([]DomainRecord{
		calendarDomain("lonely.com", "2030-12-25T00:00:00Z"),
	}, dir)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "2030.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "# 2030")
	assert.Contains(t, string(content), "## December")
	assert.Contains(t, string(content), "Domain expires: lonely.com")
	assert.NotContains(t, string(content), "Monthly")
}
