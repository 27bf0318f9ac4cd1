package mapping

import "sort"

// Validation reports whether a mapping carries an entity's required fields.
type Validation struct {
	Valid  bool     `json:"valid" yaml:"valid"`
	Errors []string `json:"errors" yaml:"errors"`
}

// Validate checks m against the minimum requirements of entity.
// It returns one message per missing requirement and never changes m.
func Validate(entity EntityType, m ColumnMapping) Validation {
	var errs []string
	missing := func(label string) {
		errs = append(errs, "Missing required column: "+label)
	}

	switch entity {
	case EntityTransaction:
		if !m.Has(FieldDate) {
			missing("date")
		}
		if !m.Has(FieldAmount) && !m.Has(FieldDebit) && !m.Has(FieldCredit) {
			missing("amount (or debit/credit)")
		}
		if !m.Has(FieldDescription) {
			missing("description")
		}
	case EntityLead, EntityOpportunity:
		if !m.Has(FieldName) {
			missing(Label(entity, FieldName))
		}
	case EntityContact:
		if !m.Has(FieldFirstName) {
			missing(Label(entity, FieldFirstName))
		}
	case EntityTask:
		if !m.Has(FieldTitle) {
			missing(Label(entity, FieldTitle))
		}
	default:
		errs = append(errs, "Unsupported entity: "+string(entity))
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}

// RequiredFields lists the fields Validate looks for. For transactions the
// amount requirement is satisfied by any one of amount, debit or credit.
func RequiredFields(entity EntityType) []string {
	switch entity {
	case EntityTransaction:
		return []string{FieldDate, FieldAmount, FieldDescription}
	case EntityLead, EntityOpportunity:
		return []string{FieldName}
	case EntityContact:
		return []string{FieldFirstName}
	case EntityTask:
		return []string{FieldTitle}
	}
	return nil
}

func sorted(in []string) []string {
	sort.Strings(in)
	return in
}
