package form

import (
	"regexp"
	"strings"
	"time"

	"github.com/spec-kit/tracker-central/internal/domain"
)

var (
	copyrightOnly = regexp.MustCompile(`^-?\s*c\d{4}$`)
	trailingCode  = regexp.MustCompile(`\b([A-Z]{2})\b$`)
	stateName     = regexp.MustCompile(`(?i)\b(Alabama|Alaska|Arizona|Arkansas|California|Colorado|Connecticut|Delaware|Florida|Georgia|Hawaii|Idaho|Illinois|Indiana|Iowa|Kansas|Kentucky|Louisiana|Maine|Maryland|Massachusetts|Michigan|Minnesota|Mississippi|Missouri|Montana|Nebraska|Nevada|New Hampshire|New Jersey|New Mexico|New York|North Carolina|North Dakota|Ohio|Oklahoma|Oregon|Pennsylvania|Rhode Island|South Carolina|South Dakota|Tennessee|Texas|Utah|Vermont|Virginia|Washington|West Virginia|Wisconsin|Wyoming)\b`)
)

// fixedApplications maps product types whose program name ignores the product.
var fixedApplications = map[string]string{
	"Assess 360":         "Assess 360",
	"Benchmark Workshop": "Workshop",
	"Benchmark Taller":   "Taller",
	"Ready To Advance":   "Ready To Advance",
	"Plan & Teach":       "Plan & Teach",
}

const notProductSpecific = "Not Product Specific"

func blank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "null"
}

// ApplicationName derives the program name from the ticket's product fields.
func ApplicationName(productType, product, subsection string) string {
	if blank(product) || product == notProductSpecific {
		if blank(product) && blank(subsection) && !blank(productType) &&
			productType != "Supplemental" && productType != notProductSpecific {
			return strings.TrimPrefix(productType, "Benchmark ")
		}
		return ""
	}

	processed := strings.TrimPrefix(product, "Benchmark ")
	if copyrightOnly.MatchString(processed) {
		return strings.TrimPrefix(productType+" "+processed, "Benchmark ")
	}
	if productType == "Supplemental" {
		if !blank(subsection) {
			return subsection
		}
		return processed
	}
	if name, ok := fixedApplications[productType]; ok {
		return name
	}
	return processed
}

// DistrictState picks the company's state, then a state at the end of the
// district name, then the ticket's own state field.
func DistrictState(tc *domain.TicketContext) string {
	if tc == nil {
		return ""
	}
	if s := strings.TrimSpace(tc.CompanyState); s != "" {
		return s
	}
	name := strings.TrimSpace(tc.DistrictName)
	if m := trailingCode.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if m := stateName.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return strings.TrimSpace(tc.DistrictState)
}

// Populate fills the template's declared, empty populator fields from the
// ticket context and returns the ids it set.
func Populate(tpl *domain.Template, values domain.FieldValues, tc *domain.TicketContext) []string {
	if tc == nil {
		return nil
	}
	var set []string
	fill := func(id, value string) {
		if value == "" || !tpl.HasField(id) || values.Has(id) {
			return
		}
		values[id] = value
		set = append(set, id)
	}
	for _, p := range tpl.Populate {
		switch p {
		case domain.PopulateApplication:
			fill("application", ApplicationName(tc.ProductType, tc.Product, tc.ProductSubsection))
		case domain.PopulateDistrictName:
			fill("districtName", strings.TrimSpace(tc.DistrictName))
		case domain.PopulateDistrictState:
			fill("districtState", DistrictState(tc))
		case domain.PopulateVIP:
			fill("isVIP", vipValue(tc.IsVIP))
		}
	}
	return set
}

func vipValue(vip bool) string {
	if vip {
		return "Yes"
	}
	return "No"
}

// ApplyDefaults sets declared defaults on empty fields. Date fields marked
// defaultToday get now as YYYY-MM-DD.
func ApplyDefaults(tpl *domain.Template, values domain.FieldValues, now time.Time) []string {
	var set []string
	for _, f := range tpl.Fields() {
		if values.Has(f.ID) {
			continue
		}
		switch {
		case f.DefaultToday:
			values[f.ID] = now.Format("2006-01-02")
		case f.Default != "":
			values[f.ID] = f.Default
		default:
			continue
		}
		set = append(set, f.ID)
	}
	return set
}
