// Package mapping guesses which source column feeds each canonical field of an
// import entity, scores the guess and checks it is usable before transforming rows.
package mapping

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FACorreiaa/smart-import/internal/domain/common"
)

// ErrUnsupportedEntity is returned for entity names outside Entities.
var ErrUnsupportedEntity = common.ErrUnsupportedEntity

// EntityType names the kind of record an export is imported as.
type EntityType string

const (
	EntityTransaction EntityType = "transaction"
	EntityLead        EntityType = "lead"
	EntityContact     EntityType = "contact"
	EntityOpportunity EntityType = "opportunity"
	EntityTask        EntityType = "task"
)

// Entities lists every supported entity in a stable order.
var Entities = []EntityType{EntityTransaction, EntityLead, EntityContact, EntityOpportunity, EntityTask}

// ParseEntityType accepts singular or plural entity names in any case.
func ParseEntityType(s string) (EntityType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasSuffix(name, "ies"):
		name = strings.TrimSuffix(name, "ies") + "y"
	case strings.HasSuffix(name, "s"):
		name = strings.TrimSuffix(name, "s")
	}
	for _, e := range Entities {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedEntity, s)
}

// Canonical field names.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldDebit       = "debit"
	FieldCredit      = "credit"
	FieldCategory    = "category"
	FieldReference   = "reference"

	FieldName     = "name"
	FieldWebsite  = "website"
	FieldIndustry = "industry"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldAddress  = "address"
	FieldCity     = "city"
	FieldState    = "state"
	FieldCountry  = "country"
	FieldStatus   = "status"
	FieldSource   = "source"
	FieldNotes    = "notes"

	FieldContactFirstName = "contact_first_name"
	FieldContactLastName  = "contact_last_name"
	FieldContactEmail     = "contact_email"
	FieldContactPhone     = "contact_phone"
	FieldContactTitle     = "contact_title"

	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldTitle     = "title"
	FieldCompany   = "company"

	FieldValue       = "value"
	FieldStage       = "stage"
	FieldCloseDate   = "close_date"
	FieldProbability = "probability"

	FieldDueDate  = "due_date"
	FieldPriority = "priority"
)

// ColumnMapping assigns canonical fields to source header names.
// A missing key or an empty header means the field is unmapped.
type ColumnMapping map[string]string

// Header returns the header mapped to field, or "".
func (m ColumnMapping) Header(field string) string {
	return m[field]
}

// Has reports whether field is mapped to a header.
func (m ColumnMapping) Has(field string) bool {
	return m[field] != ""
}

// Clone returns an independent copy of the mapping.
func (m ColumnMapping) Clone() ColumnMapping {
	out := make(ColumnMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MarshalJSON renders unmapped fields as null.
func (m ColumnMapping) MarshalJSON() ([]byte, error) {
	out := make(map[string]*string, len(m))
	for field, header := range m {
		if header == "" {
			out[field] = nil
			continue
		}
		h := header
		out[field] = &h
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts null for unmapped fields.
func (m *ColumnMapping) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ColumnMapping, len(raw))
	for field, header := range raw {
		if header == nil {
			out[field] = ""
			continue
		}
		out[field] = *header
	}
	*m = out
	return nil
}

// Confidence holds a [0,1] score per canonical field; absent fields score 0.
type Confidence map[string]float64
