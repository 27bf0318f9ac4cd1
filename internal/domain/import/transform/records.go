// Package transform turns a tokenized grid and a column mapping into typed,
// validated records. Every input row yields exactly one record; rows that
// fail validation are returned with IsValid=false and their reasons.
package transform

// RowStatus carries the source position and validation outcome of a record.
type RowStatus struct {
	// RowNumber is the 1-indexed line in the source file, counting the header.
	RowNumber int      `json:"rowNumber" yaml:"row_number"`
	IsValid   bool     `json:"isValid" yaml:"is_valid"`
	Errors    []string `json:"errors" yaml:"errors"`
}

func (s *RowStatus) finish() {
	if s.Errors == nil {
		s.Errors = []string{}
	}
	s.IsValid = len(s.Errors) == 0
}

// RowState exposes the embedded RowStatus to generic helpers.
func (s RowStatus) RowState() RowStatus { return s }

// Transaction is a bank statement line.
type Transaction struct {
	RowStatus   `yaml:",inline"`
	Date        string  `json:"date" yaml:"date"`
	Description string  `json:"description" yaml:"description"`
	Amount      float64 `json:"amount" yaml:"amount"`
	AmountMinor int64   `json:"amountMinor" yaml:"amount_minor"`
	Category    string  `json:"category,omitempty" yaml:"category,omitempty"`
	Reference   string  `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// LeadContact is one person attached to a lead row.
type LeadContact struct {
	SlotIndex int    `json:"slotIndex" yaml:"slot_index"`
	IsPrimary bool   `json:"isPrimary" yaml:"is_primary"`
	FirstName string `json:"firstName" yaml:"first_name"`
	LastName  string `json:"lastName,omitempty" yaml:"last_name,omitempty"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone     string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Lead is a company in the CRM pipeline.
type Lead struct {
	RowStatus `yaml:",inline"`
	Name      string `json:"name" yaml:"name"`
	Website   string `json:"website,omitempty" yaml:"website,omitempty"`
	Industry  string `json:"industry,omitempty" yaml:"industry,omitempty"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone     string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
	City      string `json:"city,omitempty" yaml:"city,omitempty"`
	State     string `json:"state,omitempty" yaml:"state,omitempty"`
	Country   string `json:"country,omitempty" yaml:"country,omitempty"`
	Status    string `json:"status,omitempty" yaml:"status,omitempty"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	Notes     string `json:"notes,omitempty" yaml:"notes,omitempty"`

	// Single-contact fields kept for older consumers.
	ContactFirstName string `json:"contactFirstName,omitempty" yaml:"contact_first_name,omitempty"`
	ContactLastName  string `json:"contactLastName,omitempty" yaml:"contact_last_name,omitempty"`
	ContactEmail     string `json:"contactEmail,omitempty" yaml:"contact_email,omitempty"`
	ContactPhone     string `json:"contactPhone,omitempty" yaml:"contact_phone,omitempty"`
	ContactTitle     string `json:"contactTitle,omitempty" yaml:"contact_title,omitempty"`

	Contacts []LeadContact `json:"contacts" yaml:"contacts"`
}

// Contact is a person, optionally linked to a lead by company name.
type Contact struct {
	RowStatus `yaml:",inline"`
	FirstName string `json:"firstName" yaml:"first_name"`
	LastName  string `json:"lastName,omitempty" yaml:"last_name,omitempty"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone     string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Company   string `json:"company,omitempty" yaml:"company,omitempty"`
	Notes     string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Opportunity is a potential deal.
type Opportunity struct {
	RowStatus   `yaml:",inline"`
	Name        string   `json:"name" yaml:"name"`
	Company     string   `json:"company,omitempty" yaml:"company,omitempty"`
	Value       *float64 `json:"value" yaml:"value"`
	Stage       string   `json:"stage,omitempty" yaml:"stage,omitempty"`
	CloseDate   *string  `json:"closeDate" yaml:"close_date"`
	Probability *float64 `json:"probability" yaml:"probability"`
	Notes       string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Task is a follow-up item.
type Task struct {
	RowStatus   `yaml:",inline"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	DueDate     *string `json:"dueDate" yaml:"due_date"`
	Priority    string  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Status      string  `json:"status,omitempty" yaml:"status,omitempty"`
	Company     string  `json:"company,omitempty" yaml:"company,omitempty"`
}
