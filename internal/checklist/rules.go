package checklist

import (
	"fmt"

	"kakdoma/internal/domain"
)

// Document type codes used across checklist rules.
const (
	DocNationalPassport = "national_passport"
	DocForeignPassport  = "foreign_passport"
	DocNationalIDCard   = "national_id_card"
	DocResidencyForm    = "residency_form"
	DocMigrationCard    = "migration_card"
	DocVisa             = "visa"
	DocEntryStamp       = "entry_stamp"
)

// Rule names as they appear in decision traces and audit records.
const (
	RuleVisaExempt      = "visa_exempt"
	RuleVisaRequired    = "visa_required"
	RuleIDCard          = "id_card"
	RuleForeignPassport = "foreign_passport"
)

// Rule is one nationality checklist rule: the document types a resident of a
// matching nationality must provide.
type Rule struct {
	Name         string
	RequiredDocs []string
}

// Items expands the rule into unsatisfied checklist items, one per required
// document type.
func (r Rule) Items() []domain.ChecklistItem {
	items := make([]domain.ChecklistItem, 0, len(r.RequiredDocs))
	for _, docType := range r.RequiredDocs {
		items = append(items, domain.ChecklistItem{
			Code:        "doc::" + docType,
			Description: fmt.Sprintf("document of type %q", docType),
			Required:    true,
			Blocking:    true,
		})
	}
	return items
}

// Registry maps nationality codes to checklist rules. Populated at startup
// and read-only afterwards; no locking.
type Registry struct {
	byNationality map[string]Rule
	plausible     Rule
	hasPlausible  bool
	fallback      Rule
	hasFallback   bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byNationality: make(map[string]Rule)}
}

// Register binds a rule to a set of nationality codes.
func (r *Registry) Register(rule Rule, nationalities ...string) {
	for _, n := range nationalities {
		r.byNationality[n] = rule
	}
}

// RegisterPlausible sets the rule for nationality codes that look like real
// country codes but have no explicit rule.
func (r *Registry) RegisterPlausible(rule Rule) {
	r.plausible = rule
	r.hasPlausible = true
}

// RegisterFallback sets the rule of last resort for codes that do not even
// look like country codes.
func (r *Registry) RegisterFallback(rule Rule) {
	r.fallback = rule
	r.hasFallback = true
}

// Lookup resolves the rule for a nationality code. Unknown but plausible
// codes fall through to the plausible rule, everything else to the fallback.
// Returns ErrNationalityRuleMissing when nothing is registered for the code.
func (r *Registry) Lookup(nationality string) (Rule, error) {
	if rule, ok := r.byNationality[nationality]; ok {
		return rule, nil
	}
	if r.hasPlausible && plausibleCountryCode(nationality) {
		return r.plausible, nil
	}
	if r.hasFallback {
		return r.fallback, nil
	}
	return Rule{}, fmt.Errorf("nationality %q: %w", nationality, domain.ErrNationalityRuleMissing)
}

// plausibleCountryCode reports whether s looks like an ISO alpha-2/alpha-3
// country code.
func plausibleCountryCode(s string) bool {
	if len(s) < 2 || len(s) > 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// DefaultRegistry builds the production rule set.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(
		Rule{Name: RuleVisaExempt, RequiredDocs: []string{DocNationalPassport, DocResidencyForm}},
		"KZ", "RU", "BY", "KG", "UZ", "TJ", "AM", "AZ", "MD",
	)
	r.Register(
		Rule{Name: RuleVisaRequired, RequiredDocs: []string{DocForeignPassport, DocVisa, DocEntryStamp}},
		"IN", "PK", "NG", "EG",
	)
	r.Register(
		Rule{Name: RuleIDCard, RequiredDocs: []string{DocNationalIDCard, DocResidencyForm}},
		"DE", "FR", "ES", "IT", "PL",
	)
	r.RegisterPlausible(Rule{Name: RuleForeignPassport, RequiredDocs: []string{DocForeignPassport, DocMigrationCard}})
	r.RegisterFallback(Rule{Name: RuleForeignPassport, RequiredDocs: []string{DocForeignPassport}})

	return r
}
