package service

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/tracker-central/internal/domain"
)

func TestBuildTicketPayload(t *testing.T) {
	tpl := &domain.Template{Key: "assembly", PriorityWhenVIP: 4, Subject: domain.SubjectSpec{Format: domain.SubjectAssembly}}
	source := &domain.Ticket{
		ID: 42,
		CustomFields: map[string]any{
			"cf_rvp":                "Jane",
			"cf_product_type":       "Benchmark Advance",
			"cf_product":            "Advance -c2022",
			"cf_product_subsection": nil,
			"cf_vip":                true,
			"cf_unrelated":          "dropped",
		},
	}

	got := BuildTicketPayload(PayloadInput{
		Template:    tpl,
		Values:      domain.FieldValues{"districtName": "FAIRFAX"},
		Email:       "agent@example.com",
		Subject:     "X1 | VIP | Advance",
		Description: "<div>d</div>",
		RelatedIDs:  []int64{42, 43},
		GroupID:     ptr(int64(7)),
		Source:      source,
		VIP:         true,
	})

	assert.Equal(t, 4, got.Priority)
	assert.Equal(t, 2, got.Status)
	assert.Equal(t, 101, got.Source)
	assert.Equal(t, "Incident", got.Type)
	assert.Equal(t, []string{"tracker-assembly"}, got.Tags)
	assert.Equal(t, []int64{42, 43}, got.RelatedTicketIDs)
	assert.Equal(t, int64(7), *got.GroupID)
	assert.Nil(t, got.ResponderID)

	want := map[string]any{
		"cf_rvp":                "Jane",
		"cf_product_type":       "Benchmark Advance",
		"cf_product":            "Advance -c2022",
		"cf_product_subsection": nil,
		"cf_vip":                true,
		"cf_jira_copyright":     "-c2022",
		"cf_jira_product_name":  "Benchmark Advance",
		"cf_district509811":     "FAIRFAX",
	}
	if diff := cmp.Diff(want, got.CustomFields); diff != "" {
		t.Errorf("custom fields mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTicketPayloadWithoutSource(t *testing.T) {
	tpl := &domain.Template{Key: "dpt"}
	got := BuildTicketPayload(PayloadInput{
		Template: tpl,
		Values:   domain.FieldValues{"districtField": "Explicit", "districtName": "Fallback"},
		VIP:      true,
	})
	assert.Equal(t, 2, got.Priority, "no VIP priority declared")
	assert.Equal(t, map[string]any{"cf_district509811": "Explicit"}, got.CustomFields)
}

func TestBuildTicketPayloadSedcust(t *testing.T) {
	tpl := &domain.Template{Key: "sedcust", Subject: domain.SubjectSpec{Format: domain.SubjectSEDCUST}}
	got := BuildTicketPayload(PayloadInput{
		Template: tpl,
		Values: domain.FieldValues{
			"districtState": "Florida",
			"impactType":    "Digital",
			"version":       "2.8",
			"resource":      "TRS",
			"versionState":  "Other",
		},
	})
	assert.Equal(t, map[string]any{
		"cf_jira_locale":           "Florida",
		"cf_jira_print_digital":    "Digital",
		"cf_jira_version":          "2.8",
		"cf_sedcust_jira_resource": "TRS",
	}, got.CustomFields)
}

func TestJiraFields(t *testing.T) {
	tests := []struct {
		name                    string
		productType, product    string
		subsection              string
		wantCopyright, wantName string
	}{
		{"copyright suffix", "Benchmark Advance", "Advance c2022", "", "c2022", "Benchmark Advance"},
		{"pilot", "Benchmark Advance", "Advance Pilots", "", "", "Benchmark Advance"},
		{"plain product", "Benchmark Advance", "Advance", "", "", "Advance"},
		{"supplemental subsection", "Supplemental", "Phonics", "Decodables", "", "Decodables"},
		{"supplemental no subsection", "Supplemental", "Phonics", " ", "", "Phonics"},
		{"no product", "Benchmark Advance", "", "", "", ""},
		{"no type", "", "Advance", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			copyright, name := JiraFields(tt.productType, tt.product, tt.subsection)
			assert.Equal(t, tt.wantCopyright, copyright)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestSedcustFieldsSkipsUnusableValues(t *testing.T) {
	got := SedcustFields(domain.FieldValues{
		"impactType": "Both",
		"version":    "Other",
		"resource":   "  ",
	})
	assert.Empty(t, got)

	got = SedcustFields(domain.FieldValues{"version": "Latest"})
	assert.Empty(t, got, "versions without a digit are ignored")
}
