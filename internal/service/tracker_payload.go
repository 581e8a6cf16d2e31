package service

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/freshdesk"
)

const (
	statusOpen       = 2
	priorityMedium   = 2
	sourceTracker    = 101
	trackerType      = "Incident"
	districtField    = "cf_district509811"
	supplementalType = "Supplemental"
)

// preservedFields are copied from the source ticket onto the tracker.
var preservedFields = []string{
	"cf_account_manager",
	"cf_rvp",
	"cf_categorization",
	"cf_subcategory",
	"cf_issue_detail",
	"cf_product_type",
	"cf_product",
	"cf_product_subsection",
	"cf_vip",
}

var (
	copyrightPattern = regexp.MustCompile(`(?i)c\d{4}|-\s*c\d{4}`)
	pilotPattern     = regexp.MustCompile(`(?i)Pilots?`)
	digitPattern     = regexp.MustCompile(`\d`)
)

// PayloadInput collects everything a tracker payload is built from.
type PayloadInput struct {
	Template    *domain.Template
	Values      domain.FieldValues
	Email       string
	Subject     string
	Description string
	RelatedIDs  []int64
	GroupID     *int64
	ResponderID *int64
	// Source is the first related ticket, or nil when it could not be read.
	Source *domain.Ticket
	VIP    bool
}

// BuildTicketPayload maps a submitted form onto a Freshdesk ticket.
func BuildTicketPayload(in PayloadInput) freshdesk.TicketPayload {
	p := freshdesk.TicketPayload{
		Email:            in.Email,
		Subject:          in.Subject,
		Description:      in.Description,
		Status:           statusOpen,
		Priority:         priorityMedium,
		Source:           sourceTracker,
		Type:             trackerType,
		RelatedTicketIDs: in.RelatedIDs,
		GroupID:          in.GroupID,
		ResponderID:      in.ResponderID,
		Tags:             []string{"tracker-" + in.Template.Key},
		CustomFields:     map[string]any{},
	}
	if in.VIP && in.Template.PriorityWhenVIP > 0 {
		p.Priority = in.Template.PriorityWhenVIP
	}

	if in.Source != nil {
		for _, key := range preservedFields {
			if v, ok := in.Source.CustomFields[key]; ok {
				p.CustomFields[key] = v
			}
		}
		copyright, product := JiraFields(
			in.Source.CustomField("cf_product_type"),
			in.Source.CustomField("cf_product"),
			in.Source.CustomField("cf_product_subsection"),
		)
		if copyright != "" {
			p.CustomFields["cf_jira_copyright"] = copyright
		}
		if product != "" {
			p.CustomFields["cf_jira_product_name"] = product
		}
	}

	if district := in.Values.First("districtField", "districtName"); district != "" {
		p.CustomFields[districtField] = district
	}

	if in.Template.Subject.Format == domain.SubjectSEDCUST {
		for k, v := range SedcustFields(in.Values) {
			p.CustomFields[k] = v
		}
	}
	return p
}

// JiraFields derives the Jira copyright and product name from the source
// ticket's product fields.
func JiraFields(productType, product, subsection string) (copyright, productName string) {
	productType = strings.TrimSpace(productType)
	product = strings.TrimSpace(product)

	switch {
	case productType != "" && productType != supplementalType && product != "":
		if m := copyrightPattern.FindString(product); m != "" {
			copyright = m
			productName = productType
		} else if pilotPattern.MatchString(product) {
			productName = productType
		} else {
			productName = product
		}
	case productType == supplementalType:
		productName = lo.CoalesceOrEmpty(strings.TrimSpace(subsection), product)
	}
	return copyright, productName
}

// SedcustFields maps SEDCUST form values onto the Jira sync fields.
func SedcustFields(values domain.FieldValues) map[string]string {
	out := map[string]string{}
	if v := values.Trimmed("districtState"); v != "" {
		out["cf_jira_locale"] = v
	}
	if v := values.Trimmed("impactType"); v == "Digital" || v == "Print" {
		out["cf_jira_print_digital"] = v
	}
	if v := values.Trimmed("version"); v != "" && v != "Other" && digitPattern.MatchString(v) {
		out["cf_jira_version"] = v
	}
	if v := values.Trimmed("resource"); v != "" {
		out["cf_sedcust_jira_resource"] = v
	}
	if v := values.Trimmed("versionState"); v != "" && v != "Other" {
		out["cf_jira_state_district_variation"] = v
	}
	return out
}
