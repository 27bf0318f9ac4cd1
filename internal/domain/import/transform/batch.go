package transform

import (
	"fmt"

	"github.com/FACorreiaa/smart-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/smart-import/internal/domain/import/parser"
)

// Batch holds the records of one entity type produced from a grid. Exactly
// one of the record slices is populated, matching Entity.
type Batch struct {
	Entity        mapping.EntityType `json:"entity" yaml:"entity"`
	Transactions  []Transaction      `json:"transactions,omitempty" yaml:"transactions,omitempty"`
	Leads         []Lead             `json:"leads,omitempty" yaml:"leads,omitempty"`
	Contacts      []Contact          `json:"contacts,omitempty" yaml:"contacts,omitempty"`
	Opportunities []Opportunity      `json:"opportunities,omitempty" yaml:"opportunities,omitempty"`
	Tasks         []Task             `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	Total         int                `json:"total" yaml:"total"`
	Valid         int                `json:"valid" yaml:"valid"`
	Invalid       int                `json:"invalid" yaml:"invalid"`
}

// Statuses returns the row status of every record in file order.
func (b *Batch) Statuses() []RowStatus {
	var out []RowStatus
	switch b.Entity {
	case mapping.EntityTransaction:
		out = statuses(b.Transactions)
	case mapping.EntityLead:
		out = statuses(b.Leads)
	case mapping.EntityContact:
		out = statuses(b.Contacts)
	case mapping.EntityOpportunity:
		out = statuses(b.Opportunities)
	case mapping.EntityTask:
		out = statuses(b.Tasks)
	}
	return out
}

// Errors flattens the row errors of invalid records.
func (b *Batch) Errors() []string {
	var out []string
	for _, s := range b.Statuses() {
		out = append(out, s.Errors...)
	}
	return out
}

type statusCarrier interface {
	RowState() RowStatus
}

func statuses[T statusCarrier](records []T) []RowStatus {
	out := make([]RowStatus, len(records))
	for i, r := range records {
		out[i] = r.RowState()
	}
	return out
}

// Valid keeps the records that passed validation.
func Valid[T statusCarrier](records []T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if r.RowState().IsValid {
			out = append(out, r)
		}
	}
	return out
}

// Run transforms grid for entity. slots is used for leads only and may be
// nil.
func Run(entity mapping.EntityType, grid *parser.Grid, m mapping.ColumnMapping, slots []mapping.ContactSlot) (*Batch, error) {
	b := &Batch{Entity: entity}
	switch entity {
	case mapping.EntityTransaction:
		b.Transactions = Transactions(grid, m)
	case mapping.EntityLead:
		b.Leads = Leads(grid, m, slots)
	case mapping.EntityContact:
		b.Contacts = Contacts(grid, m)
	case mapping.EntityOpportunity:
		b.Opportunities = Opportunities(grid, m)
	case mapping.EntityTask:
		b.Tasks = Tasks(grid, m)
	default:
		return nil, fmt.Errorf("%w: %s", mapping.ErrUnsupportedEntity, entity)
	}

	for _, s := range b.Statuses() {
		b.Total++
		if s.IsValid {
			b.Valid++
		} else {
			b.Invalid++
		}
	}
	return b, nil
}
