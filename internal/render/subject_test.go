package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/templates"
)

var roleOptions = []domain.Option{
	{ID: "students", Label: "Students"},
	{ID: "teachers", Label: "Teachers"},
	{ID: "admin", Label: "Admin"},
	{ID: "allUsers", Label: "All Users"},
}

const fairfaxSubject = "VIP * FAIRFAX CO SCHOOL DIST • VA | Advance -c2022 • 2.75 Virginia | Bookshelves • Option to Select Whole Class to Share Bookshelves for Teachers"

func TestFormatSubjectVIP(t *testing.T) {
	opts := SubjectOptions{Roles: roleOptions, RoleField: "userRole"}

	sim := domain.FieldValues{
		"isVIP":         "Yes",
		"districtName":  "FAIRFAX CO SCHOOL DIST",
		"districtState": "VA",
		"application":   "Advance -c2022",
		"version":       "2.75",
		"versionState":  "Virginia",
		"resource":      "Bookshelves",
		"specificIssue": "Option to Select Whole Class to Share Bookshelves",
		"userRole":      "teachers",
	}
	assert.True(t, strings.HasPrefix(FormatSubject(domain.SubjectSIM, sim, opts), fairfaxSubject))

	feature := sim.Clone()
	delete(feature, "resource")
	delete(feature, "specificIssue")
	feature["resourceName"] = "Bookshelves"
	feature["shortDescription"] = "Option to Select Whole Class to Share Bookshelves"
	assert.Equal(t, fairfaxSubject, FormatSubject(domain.SubjectFeatureRequest, feature, opts))
}

func TestFormatSubjectFromRegistry(t *testing.T) {
	reg, err := templates.Load()
	require.NoError(t, err)
	tpl, err := reg.Get("feature-request")
	require.NoError(t, err)

	values := domain.FieldValues{
		"isVIP":            "Yes",
		"districtName":     "FAIRFAX CO SCHOOL DIST",
		"districtState":    "VA",
		"application":      "Advance -c2022",
		"version":          "2.75",
		"versionState":     "Virginia",
		"resourceName":     "Bookshelves",
		"shortDescription": "Option to Select Whole Class to Share Bookshelves",
		"userRole":         "teachers",
	}
	assert.Equal(t, fairfaxSubject, SubjectFor(tpl, values, nil))
}

func TestFormatSubjectXcodeUnknown(t *testing.T) {
	opts := SubjectOptions{XcodeUnknown: "xcodeUnknown"}
	values := domain.FieldValues{
		"xcode":         "X99999 ",
		"xcodeUnknown":  "true",
		"application":   "Advance",
		"resource":      "TRS",
		"path":          "G5 > U1",
		"specificIssue": "Title Missing",
	}

	sedcust := FormatSubject(domain.SubjectSEDCUST, values, opts)
	assert.Equal(t, "Xcode Unknown | Advance | TRS: G5 > U1 - Title Missing", sedcust)

	assembly := FormatSubject(domain.SubjectAssembly, values, opts)
	assert.True(t, strings.HasPrefix(assembly, "Xcode Unknown | "), assembly)
	assert.NotContains(t, assembly, "X99999")

	values["xcodeUnknown"] = ""
	assert.True(t, strings.HasPrefix(FormatSubject(domain.SubjectSEDCUST, values, opts), "X99999 | "))
}

func TestRoleText(t *testing.T) {
	tests := []struct {
		name    string
		checked string
		want    string
	}{
		{"none", "", ""},
		{"single", "teachers", "Teachers"},
		{"declaration order", "admin,students", "Students, Admin"},
		{"all users wins", "teachers,allUsers", "All Users"},
		{"all users alone", "allUsers", "All Users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := domain.FieldValues{"userRole": tt.checked}
			assert.Equal(t, tt.want, RoleText(values, "userRole", roleOptions))
		})
	}
}

func TestFormatSubjectFormats(t *testing.T) {
	tests := []struct {
		name   string
		format domain.SubjectFormat
		values domain.FieldValues
		want   string
	}{
		{
			name:   "sim without vip or roles",
			format: domain.SubjectSIM,
			values: domain.FieldValues{"districtName": "Dist", "application": "Advance", "specificIssue": "Broken"},
			want:   "Dist | Advance | Broken",
		},
		{
			name:   "sim vip with state only",
			format: domain.SubjectSIM,
			values: domain.FieldValues{"isVIP": "Yes", "districtState": "FL", "resource": "Reading Log"},
			want:   "VIP * FL | Reading Log",
		},
		{
			name:   "dashboard skips placeholder resource",
			format: domain.SubjectSIMDashboard,
			values: domain.FieldValues{"districtName": "Dist", "resource": "Placeholder", "specificIssue": "Slow"},
			want:   "Dist | Slow",
		},
		{
			name:   "empty values",
			format: domain.SubjectSIM,
			values: domain.FieldValues{},
			want:   "",
		},
		{
			name:   "sedcust vip",
			format: domain.SubjectSEDCUST,
			values: domain.FieldValues{"xcode": "X72525", "isVIP": "Yes", "application": "Advance", "version": "2.8", "versionState": "Florida", "resource": "TRS", "specificIssue": "Title Missing"},
			want:   "X72525 | VIP | Advance • 2.8 Florida | TRS - Title Missing",
		},
		{
			name:   "sedcust path only",
			format: domain.SubjectSEDCUST,
			values: domain.FieldValues{"path": "G5 > U1", "specificIssue": "Typo"},
			want:   "G5 > U1 - Typo",
		},
		{
			name:   "assembly multiple xcodes",
			format: domain.SubjectAssembly,
			values: domain.FieldValues{"xcode": "X1", "hasMultipleXcodes": "Yes", "isVIP": "No", "application": "Advance", "specificIssue": "Missing assembly", "gradesImpacted": "K-2"},
			want:   "X1 (Multiple Xcodes) | Advance | Missing assembly: K-2",
		},
		{
			name:   "assembly rollover",
			format: domain.SubjectAssemblyRollover,
			values: domain.FieldValues{"isVIP": "Yes", "districtName": "Dist", "districtState": "TX"},
			want:   "VIP Dist • TX | Assembly Rollover",
		},
		{
			name:   "assembly rollover without district",
			format: domain.SubjectAssemblyRollover,
			values: domain.FieldValues{},
			want:   "Assembly Rollover",
		},
		{
			name:   "dpt",
			format: domain.SubjectDPT,
			values: domain.FieldValues{"isVIP": "Yes", "districtName": "Dist", "districtState": "TX"},
			want:   "VIP * Dist • TX | DPT • Customized eAssessments - District Admin",
		},
		{
			name:   "dpt without name",
			format: domain.SubjectDPT,
			values: domain.FieldValues{"districtState": "TX"},
			want:   "DPT • Customized eAssessments - District Admin",
		},
		{
			name:   "timeout standard",
			format: domain.SubjectTimeoutExtension,
			values: domain.FieldValues{"isVIP": "No", "districtName": " Dist ", "districtState": "TX"},
			want:   "Standard Dist • TX | Timeout Extension",
		},
		{
			name:   "timeout vip custom issue",
			format: domain.SubjectTimeoutExtension,
			values: domain.FieldValues{"isVIP": "Yes", "districtName": "Dist", "issue": "Longer Timeout"},
			want:   "VIP * Dist | Longer Timeout",
		},
		{
			name:   "timeout without district",
			format: domain.SubjectTimeoutExtension,
			values: domain.FieldValues{},
			want:   "Timeout Extension",
		},
		{
			name:   "help article",
			format: domain.SubjectHelpArticle,
			values: domain.FieldValues{"helpArticleName": "Reading Log"},
			want:   "BU Help Article Update | Reading Log",
		},
		{
			name:   "help article without name",
			format: domain.SubjectHelpArticle,
			values: domain.FieldValues{},
			want:   "BU Help Article Update",
		},
		{
			name:   "default",
			format: domain.SubjectDefault,
			values: domain.FieldValues{"districtName": "Dist", "districtState": "TX", "issue": "Other"},
			want:   "Dist • TX | Other",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatSubject(tt.format, tt.values, SubjectOptions{})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, FormatSubject(tt.format, tt.values, SubjectOptions{}))
		})
	}
}

func TestFormatSubjectAchievementLevelsUsesTicketVIP(t *testing.T) {
	values := domain.FieldValues{"districtName": "Dist", "districtState": "TX"}
	assert.Equal(t, "VIP* Dist • TX | Custom Achievement Levels",
		FormatSubject(domain.SubjectAchievementLevels, values, SubjectOptions{TicketVIP: true}))
	assert.Equal(t, "Dist • TX | Custom Achievement Levels",
		FormatSubject(domain.SubjectAchievementLevels, values, SubjectOptions{}))
	assert.Equal(t, "Custom Achievement Levels",
		FormatSubject(domain.SubjectAchievementLevels, domain.FieldValues{}, SubjectOptions{TicketVIP: true}))
}

func TestValidateSubject(t *testing.T) {
	rules := domain.SubjectRules{MaxLength: 20, Separator: " | ", RequiredParts: []string{"xcode"}}

	assert.Empty(t, ValidateSubject("Xcode Unknown | A", rules))

	errs := ValidateSubject(strings.Repeat("a", 21), rules)
	assert.Equal(t, []string{
		"Subject line must not exceed 20 characters",
		`Subject line must contain "xcode"`,
		`Subject line must use " | " as separator`,
	}, errs)

	assert.Equal(t, []string{"Subject line must be at least 5 characters"},
		ValidateSubject("abc", domain.SubjectRules{MinLength: 5}))
}
