package transform

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/FACorreiaa/smart-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/smart-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-import/internal/domain/import/parser"
)

// headerRowOffset converts a zero-based data row index to a 1-indexed
// file line: one for counting from one, one for the header row.
const headerRowOffset = 2

// columns resolves mapped headers to column positions once per grid.
type columns struct {
	index map[string]int
}

func resolve(grid *parser.Grid, m mapping.ColumnMapping) columns {
	idx := make(map[string]int, len(m))
	for field, header := range m {
		idx[field] = grid.ColumnIndex(header)
	}
	return columns{index: idx}
}

// get returns the trimmed, whitespace-collapsed cell for field, or "" when
// the field is unmapped.
func (c columns) get(row []string, field string) string {
	i, ok := c.index[field]
	if !ok || i < 0 || i >= len(row) {
		return ""
	}
	return normalizer.CleanText(row[i])
}

func (c columns) mapped(field string) bool {
	i, ok := c.index[field]
	return ok && i >= 0
}

// rowErrors accumulates row-scoped messages.
type rowErrors struct {
	row  int
	msgs []string
}

func (e *rowErrors) missing(field string) {
	e.msgs = append(e.msgs, fmt.Sprintf("Row %d: Missing %s", e.row, field))
}

func (e *rowErrors) invalid(field string) {
	e.msgs = append(e.msgs, fmt.Sprintf("Row %d: Invalid %s", e.row, field))
}

func (e *rowErrors) status() RowStatus {
	s := RowStatus{RowNumber: e.row, Errors: e.msgs}
	s.finish()
	return s
}

// Transactions converts grid rows into transactions.
//
// A mapped amount column wins. Otherwise debit and credit are read and the
// first to parse to a non-zero value is used, debit first: debits become
// negative and credits positive. A row whose debit/credit cells parse only
// to zero gets amount 0.
func Transactions(grid *parser.Grid, m mapping.ColumnMapping) []Transaction {
	cols := resolve(grid, m)
	out := make([]Transaction, 0, len(grid.Rows))

	for i, row := range grid.Rows {
		errs := &rowErrors{row: i + headerRowOffset}
		tx := Transaction{
			Description: cols.get(row, mapping.FieldDescription),
			Category:    cols.get(row, mapping.FieldCategory),
			Reference:   cols.get(row, mapping.FieldReference),
		}

		rawDate := cols.get(row, mapping.FieldDate)
		if date, err := calendarDate(rawDate); err == nil {
			tx.Date = date
		} else if errors.Is(err, normalizer.ErrEmptyValue) {
			errs.missing(mapping.FieldDate)
		} else {
			errs.invalid(mapping.FieldDate)
		}

		if tx.Description == "" {
			errs.missing(mapping.FieldDescription)
		}

		amount, err := transactionAmount(cols, row)
		switch {
		case err == nil:
			tx.Amount = amount
			tx.AmountMinor = normalizer.ToMinorUnits(amount)
		case errors.Is(err, normalizer.ErrEmptyValue):
			errs.missing(mapping.FieldAmount)
		default:
			errs.invalid(mapping.FieldAmount)
		}

		tx.RowStatus = errs.status()
		out = append(out, tx)
	}

	return out
}

func transactionAmount(cols columns, row []string) (float64, error) {
	if cols.mapped(mapping.FieldAmount) {
		return normalizer.ParseAmount(cols.get(row, mapping.FieldAmount))
	}

	if !cols.mapped(mapping.FieldDebit) && !cols.mapped(mapping.FieldCredit) {
		return 0, normalizer.ErrEmptyValue
	}

	debit, debitErr := normalizer.ParseAmount(cols.get(row, mapping.FieldDebit))
	credit, creditErr := normalizer.ParseAmount(cols.get(row, mapping.FieldCredit))

	switch {
	case debitErr == nil && debit != 0:
		return -math.Abs(debit), nil
	case creditErr == nil && credit != 0:
		return math.Abs(credit), nil
	case debitErr == nil || creditErr == nil:
		return 0, nil
	case errors.Is(debitErr, normalizer.ErrInvalidAmount) || errors.Is(creditErr, normalizer.ErrInvalidAmount):
		return 0, normalizer.ErrInvalidAmount
	default:
		return 0, normalizer.ErrEmptyValue
	}
}

// Leads converts grid rows into leads. Each slot with a first name becomes a
// contact and the first of them backfills the single-contact fields left
// empty by the mapping. When no slot yields a contact, the mapped
// single-contact fields form the primary contact.
func Leads(grid *parser.Grid, m mapping.ColumnMapping, slots []mapping.ContactSlot) []Lead {
	cols := resolve(grid, m)
	slotCols := make([]columns, len(slots))
	for i, s := range slots {
		slotCols[i] = resolve(grid, s.Fields)
	}

	out := make([]Lead, 0, len(grid.Rows))
	for i, row := range grid.Rows {
		errs := &rowErrors{row: i + headerRowOffset}
		lead := Lead{
			Name:             cols.get(row, mapping.FieldName),
			Website:          cols.get(row, mapping.FieldWebsite),
			Industry:         cols.get(row, mapping.FieldIndustry),
			Email:            cols.get(row, mapping.FieldEmail),
			Phone:            cols.get(row, mapping.FieldPhone),
			Address:          cols.get(row, mapping.FieldAddress),
			City:             cols.get(row, mapping.FieldCity),
			State:            cols.get(row, mapping.FieldState),
			Country:          cols.get(row, mapping.FieldCountry),
			Status:           cols.get(row, mapping.FieldStatus),
			Source:           cols.get(row, mapping.FieldSource),
			Notes:            cols.get(row, mapping.FieldNotes),
			ContactFirstName: cols.get(row, mapping.FieldContactFirstName),
			ContactLastName:  cols.get(row, mapping.FieldContactLastName),
			ContactEmail:     cols.get(row, mapping.FieldContactEmail),
			ContactPhone:     cols.get(row, mapping.FieldContactPhone),
			ContactTitle:     cols.get(row, mapping.FieldContactTitle),
			Contacts:         []LeadContact{},
		}

		if lead.Name == "" {
			errs.missing(mapping.FieldName)
		}

		for j, s := range slots {
			c := LeadContact{
				SlotIndex: s.SlotIndex,
				FirstName: slotCols[j].get(row, mapping.ContactFirstName),
				LastName:  slotCols[j].get(row, mapping.ContactLastName),
				Email:     slotCols[j].get(row, mapping.ContactEmail),
				Phone:     slotCols[j].get(row, mapping.ContactPhone),
				Title:     slotCols[j].get(row, mapping.ContactTitle),
			}
			if c.FirstName == "" {
				continue
			}
			c.IsPrimary = len(lead.Contacts) == 0
			lead.Contacts = append(lead.Contacts, c)
		}

		switch {
		case len(lead.Contacts) > 0:
			backfillLegacyContact(&lead, lead.Contacts[0])
		case lead.ContactFirstName != "":
			lead.Contacts = append(lead.Contacts, LeadContact{
				IsPrimary: true,
				FirstName: lead.ContactFirstName,
				LastName:  lead.ContactLastName,
				Email:     lead.ContactEmail,
				Phone:     lead.ContactPhone,
				Title:     lead.ContactTitle,
			})
		}

		lead.RowStatus = errs.status()
		out = append(out, lead)
	}

	return out
}

func backfillLegacyContact(lead *Lead, c LeadContact) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&lead.ContactFirstName, c.FirstName)
	fill(&lead.ContactLastName, c.LastName)
	fill(&lead.ContactEmail, c.Email)
	fill(&lead.ContactPhone, c.Phone)
	fill(&lead.ContactTitle, c.Title)
}

// Contacts converts grid rows into contacts.
func Contacts(grid *parser.Grid, m mapping.ColumnMapping) []Contact {
	cols := resolve(grid, m)
	out := make([]Contact, 0, len(grid.Rows))

	for i, row := range grid.Rows {
		errs := &rowErrors{row: i + headerRowOffset}
		c := Contact{
			FirstName: cols.get(row, mapping.FieldFirstName),
			LastName:  cols.get(row, mapping.FieldLastName),
			Email:     cols.get(row, mapping.FieldEmail),
			Phone:     cols.get(row, mapping.FieldPhone),
			Title:     cols.get(row, mapping.FieldTitle),
			Company:   cols.get(row, mapping.FieldCompany),
			Notes:     cols.get(row, mapping.FieldNotes),
		}
		if c.FirstName == "" {
			errs.missing(mapping.FieldFirstName)
		}

		c.RowStatus = errs.status()
		out = append(out, c)
	}

	return out
}

// Opportunities converts grid rows into opportunities. Value, close date and
// probability are optional; present but unparseable cells are row errors.
func Opportunities(grid *parser.Grid, m mapping.ColumnMapping) []Opportunity {
	cols := resolve(grid, m)
	out := make([]Opportunity, 0, len(grid.Rows))

	for i, row := range grid.Rows {
		errs := &rowErrors{row: i + headerRowOffset}
		o := Opportunity{
			Name:    cols.get(row, mapping.FieldName),
			Company: cols.get(row, mapping.FieldCompany),
			Stage:   cols.get(row, mapping.FieldStage),
			Notes:   cols.get(row, mapping.FieldNotes),
		}
		if o.Name == "" {
			errs.missing(mapping.FieldName)
		}

		o.Value = optionalNumber(errs, mapping.FieldValue, cols.get(row, mapping.FieldValue), normalizer.ParseAmount)
		o.Probability = optionalNumber(errs, mapping.FieldProbability, cols.get(row, mapping.FieldProbability), normalizer.ParsePercent)
		o.CloseDate = optionalDate(errs, mapping.FieldCloseDate, cols.get(row, mapping.FieldCloseDate))

		o.RowStatus = errs.status()
		out = append(out, o)
	}

	return out
}

// Tasks converts grid rows into tasks.
func Tasks(grid *parser.Grid, m mapping.ColumnMapping) []Task {
	cols := resolve(grid, m)
	out := make([]Task, 0, len(grid.Rows))

	for i, row := range grid.Rows {
		errs := &rowErrors{row: i + headerRowOffset}
		t := Task{
			Title:       cols.get(row, mapping.FieldTitle),
			Description: cols.get(row, mapping.FieldDescription),
			Priority:    cols.get(row, mapping.FieldPriority),
			Status:      cols.get(row, mapping.FieldStatus),
			Company:     cols.get(row, mapping.FieldCompany),
		}
		if t.Title == "" {
			errs.missing(mapping.FieldTitle)
		}
		t.DueDate = optionalDate(errs, mapping.FieldDueDate, cols.get(row, mapping.FieldDueDate))

		t.RowStatus = errs.status()
		out = append(out, t)
	}

	return out
}

func optionalNumber(errs *rowErrors, field, raw string, parse func(string) (float64, error)) *float64 {
	if raw == "" {
		return nil
	}
	v, err := parse(raw)
	if err != nil {
		errs.invalid(field)
		return nil
	}
	return &v
}

func optionalDate(errs *rowErrors, field, raw string) *string {
	if raw == "" {
		return nil
	}
	d, err := calendarDate(raw)
	if err != nil {
		errs.invalid(field)
		return nil
	}
	return &d
}

// calendarDate normalizes raw and rejects days the month does not have,
// such as 2024-02-31.
func calendarDate(raw string) (string, error) {
	d, err := normalizer.ParseDate(raw)
	if err != nil {
		return "", err
	}
	if _, err := time.Parse(normalizer.ISODateLayout, d); err != nil {
		return "", normalizer.ErrInvalidDate
	}
	return d, nil
}
