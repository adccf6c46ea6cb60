package domains

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CalendarEntry is one dated line in a calendar month section.
type CalendarEntry struct {
	Day         int
	Description string
	Placeholder bool
}

// CalendarMonth is one "## <name>" section of a calendar file. Custom
// sections (headings that are not month names) are kept too.
type CalendarMonth struct {
	Name    string
	Entries []CalendarEntry
}

// Calendar holds a year's sections in file order.
type Calendar struct {
	months []*CalendarMonth
	index  map[string]*CalendarMonth
}

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var (
	headingPattern     = regexp.MustCompile(`^##\s+(.+)$`)
	entryPattern       = regexp.MustCompile(`^-\s+(\d+):\s+(.+)$`)
	placeholderPattern = regexp.MustCompile(`^-\s+\.$`)
)

func newCalendar() *Calendar {
	return &Calendar{index: make(map[string]*CalendarMonth)}
}

func (c *Calendar) month(name string) *CalendarMonth {
	if m, ok := c.index[name]; ok {
		return m
	}
	m := &CalendarMonth{Name: name}
	c.months = append(c.months, m)
	c.index[name] = m
	return m
}

// Month returns the named section, or nil.
func (c *Calendar) Month(name string) *CalendarMonth {
	return c.index[name]
}

// ParseCalendar reads a calendar file's sections and entries.
// Lines that match neither a heading, a day entry, nor the "- ."
// placeholder are dropped.
func ParseCalendar(content string) *Calendar {
	cal := newCalendar()
	var current *CalendarMonth

	for _, line := range strings.Split(content, "\n") {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			current = cal.month(strings.TrimSpace(m[1]))
			continue
		}
		if current == nil {
			continue
		}
		if m := entryPattern.FindStringSubmatch(line); m != nil {
			day, _ := strconv.Atoi(m[1])
			current.Entries = append(current.Entries, CalendarEntry{
				Day:         day,
				Description: strings.TrimSpace(m[2]),
			})
		} else if placeholderPattern.MatchString(line) {
			current.Entries = append(current.Entries, CalendarEntry{
				Description: ".",
				Placeholder: true,
			})
		}
	}
	return cal
}

// MergeDomains adds an expiry entry for every domain expiring in the
// given year, skipping domains already present on that day.
func MergeDomains(cal *Calendar, domains []DomainRecord, year int) {
	for _, name := range monthNames {
		cal.month(name)
	}

	for _, domain := range domains {
		if domain.Name == "" || domain.Expires == "" {
			continue
		}
		expiry, err := parseExpiry(domain.Expires)
		if err != nil || expiry.Year() != year {
			continue
		}

		month := cal.month(monthNames[expiry.Month()-1])
		day := expiry.Day()

		present := false
		for _, entry := range month.Entries {
			if entry.Day == day && strings.Contains(entry.Description, domain.Name) {
				present = true
				break
			}
		}
		if !present {
			month.Entries = append(month.Entries, CalendarEntry{
				Day:         day,
				Description: "Domain expires: " + domain.Name,
			})
		}
	}
}

func parseExpiry(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized expiry date %q", value)
}

// FormatCalendar renders a calendar back to markdown. Custom sections
// come first in their original order, then the twelve months; sections
// with no entries and no placeholder are dropped.
func FormatCalendar(cal *Calendar, year int) string {
	standard := make(map[string]bool, len(monthNames))
	for _, name := range monthNames {
		standard[name] = true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %d\n", year)
	sb.WriteString("\n")

	for _, month := range cal.months {
		if !standard[month.Name] {
			formatMonth(&sb, month)
		}
	}
	for _, name := range monthNames {
		if month := cal.index[name]; month != nil {
			formatMonth(&sb, month)
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func formatMonth(sb *strings.Builder, month *CalendarMonth) {
	var real []CalendarEntry
	hasPlaceholder := false
	for _, entry := range month.Entries {
		if entry.Placeholder {
			hasPlaceholder = true
		} else {
			real = append(real, entry)
		}
	}
	if len(real) == 0 && !hasPlaceholder {
		return
	}

	fmt.Fprintf(sb, "## %s\n\n", month.Name)
	if len(real) == 0 {
		sb.WriteString("- .\n")
	} else {
		sort.SliceStable(real, func(i, j int) bool { return real[i].Day < real[j].Day })
		for _, entry := range real {
			fmt.Fprintf(sb, "- %02d: %s\n", entry.Day, entry.Description)
		}
	}
	sb.WriteString("\n")
}

// UpdateCalendars rewrites <baseDirectory>/<year>.md for every year
// that appears in the domain expiry dates. New files start from
// _template.md when present, otherwise from a twelve-month skeleton of
// placeholders. Returns the paths written.
func UpdateCalendars(domains []DomainRecord, baseDirectory string) ([]string, error) {
	if err := os.MkdirAll(baseDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare directory %s: %w", baseDirectory, err)
	}

	yearSet := make(map[int]bool)
	for _, domain := range domains {
		if domain.Expires == "" {
			continue
		}
		if expiry, err := parseExpiry(domain.Expires); err == nil {
			yearSet[expiry.Year()] = true
		}
	}
	years := make([]int, 0, len(yearSet))
	for year := range yearSet {
		years = append(years, year)
	}
	sort.Ints(years)

	var updated []string
	for _, year := range years {
		filePath := filepath.Join(baseDirectory, fmt.Sprintf("%d.md", year))
		content, err := calendarSeed(filePath, filepath.Join(baseDirectory, "_template.md"), year)
		if err != nil {
			return updated, err
		}

		cal := ParseCalendar(content)
		MergeDomains(cal, domains, year)

		markdown := FormatCalendar(cal, year)
		if err := os.WriteFile(filePath, []byte(markdown), 0o644); err != nil {
			return updated, fmt.Errorf("failed to write %s: %w", filePath, err)
		}
		slog.Info("Updated calendar", "path", filePath)
		updated = append(updated, filePath)
	}
	return updated, nil
}

func calendarSeed(filePath, templatePath string, year int) (string, error) {
	if data, err := os.ReadFile(filePath); err == nil {
		slog.Info("Read existing calendar", "path", filePath)
		return string(data), nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	if data, err := os.ReadFile(templatePath); err == nil {
		slog.Info("Using calendar template", "template", templatePath, "path", filePath)
		return string(data), nil
	}

	slog.Info("Creating new calendar", "path", filePath)
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %d\n\n", year)
	for _, name := range monthNames {
		fmt.Fprintf(&sb, "## %s\n\n- .\n\n", name)
	}
	return sb.String(), nil
}
