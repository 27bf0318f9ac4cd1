package mapping

import (
	"regexp"
	"strings"
)

// fieldPatterns holds the header patterns for one canonical field,
// most specific first.
type fieldPatterns struct {
	field    string
	label    string
	patterns []*regexp.Regexp
}

// schema is the static description of one entity. Built once at init and
// only read afterwards.
type schema struct {
	entity EntityType
	fields []fieldPatterns
}

// compile turns readable header patterns into case-insensitive regexps.
// A space in a pattern matches any run of spaces, underscores, dashes or dots,
// so "first name" also matches "First_Name" and "first-name".
func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + strings.ReplaceAll(expr, " ", `[\s_.\-]*`))
	}
	return out
}

func field(name, label string, exprs ...string) fieldPatterns {
	return fieldPatterns{field: name, label: label, patterns: compile(exprs...)}
}

var transactionSchema = schema{
	entity: EntityTransaction,
	fields: []fieldPatterns{
		field(FieldDate, "date",
			`^date$`,
			`^transaction date$`,
			`^(posted|posting|post) date$`,
			`^(booking|value|trade|settlement) date$`,
			`^(txn|trans|started|completed) date$`,
			`^date\b`,
			`date`,
			`^(data|fecha|datum)\b`,
		),
		field(FieldDescription, "description",
			`^description$`,
			`^(transaction )?(description|details)$`,
			`^(memo|narrative|narration|particulars)$`,
			`^(payee|merchant)( name)?$`,
			`^name$`,
			`descri`,
			`(memo|payee|merchant|details)`,
		),
		field(FieldAmount, "amount",
			`^amount$`,
			`^(transaction|txn) amount$`,
			`^(net|total) amount$`,
			`^amount\b`,
			`^(value|sum|valor|importe|montante)$`,
		),
		field(FieldDebit, "debit",
			`^debit$`,
			`^debit amount$`,
			`^(withdrawal|money out|paid out|outflow|spent)s?$`,
			`^(debito|débito|cargo)`,
			`debit`,
		),
		field(FieldCredit, "credit",
			`^credit$`,
			`^credit amount$`,
			`^(deposit|money in|paid in|inflow|received)s?$`,
			`^(credito|crédito|abono)`,
			`credit`,
		),
		field(FieldCategory, "category",
			`^category$`,
			`^transaction (category|type)$`,
			`^categor`,
			`^(type|tipo)$`,
			`categ`,
		),
		field(FieldReference, "reference",
			`^reference$`,
			`^(ref|reference)( (no|number|id))?$`,
			`^(transaction|txn) id$`,
			`^(check|cheque) (no|number)$`,
			`reference`,
		),
	},
}

var leadSchema = schema{
	entity: EntityLead,
	fields: []fieldPatterns{
		field(FieldName, "company name",
			`^(company|company name|business|business name|organization|organisation|account name)$`,
			`^(lead|lead name)$`,
			`^name$`,
			`^(company|business|organi[sz]ation)\b`,
			`company`,
		),
		field(FieldWebsite, "website",
			`^(website|web site|url|web)$`,
			`^(company )?(website|url|domain)$`,
			`(website|url|domain)`,
		),
		field(FieldIndustry, "industry",
			`^industry$`,
			`^(sector|vertical)$`,
			`industry`,
		),
		field(FieldEmail, "email",
			`^e mail$`,
			`^(company |business |general )?e mail( address)?$`,
			`e mail`,
		),
		field(FieldPhone, "phone",
			`^phone$`,
			`^(company |business |main |office )?(phone|telephone|tel)( number)?$`,
			`phone`,
		),
		field(FieldAddress, "address",
			`^address$`,
			`^(street|mailing|billing|postal|physical|company) address$`,
			`^address (line )?1$`,
			`^street$`,
		),
		field(FieldCity, "city",
			`^city$`,
			`^(town|locality)$`,
			`city`,
		),
		field(FieldState, "state",
			`^state$`,
			`^(province|region|county|state/province)$`,
			`^state\b`,
		),
		field(FieldCountry, "country",
			`^country$`,
			`^country (code|name)$`,
			`country`,
		),
		field(FieldStatus, "status",
			`^status$`,
			`^lead status$`,
			`status`,
		),
		field(FieldSource, "source",
			`^source$`,
			`^lead source$`,
			`source`,
		),
		field(FieldNotes, "notes",
			`^notes?$`,
			`^(comments?|description)$`,
			`(notes?|comments?)`,
		),
		field(FieldContactFirstName, "contact first name",
			`^contact first name$`,
			`^first name$`,
			`^(fname|first)$`,
			`first name`,
		),
		field(FieldContactLastName, "contact last name",
			`^contact last name$`,
			`^last name$`,
			`^(lname|last|surname)$`,
			`last name`,
		),
		field(FieldContactEmail, "contact email",
			`^contact e mail( address)?$`,
			`^(primary )?contact e mail$`,
		),
		field(FieldContactPhone, "contact phone",
			`^contact (phone|mobile|tel)( number)?$`,
			`^mobile( phone)?$`,
		),
		field(FieldContactTitle, "contact title",
			`^contact (job )?title$`,
			`^(job title|title|position|role)$`,
			`title`,
		),
	},
}

var contactSchema = schema{
	entity: EntityContact,
	fields: []fieldPatterns{
		field(FieldFirstName, "first name",
			`^first name$`,
			`^(fname|first|given name|forename)$`,
			`^contact first name$`,
			`first name`,
		),
		field(FieldLastName, "last name",
			`^last name$`,
			`^(lname|last|surname|family name)$`,
			`^contact last name$`,
			`last name`,
		),
		field(FieldEmail, "email",
			`^e mail$`,
			`^e mail address$`,
			`^(contact |work |personal )e mail$`,
			`e mail`,
		),
		field(FieldPhone, "phone",
			`^phone$`,
			`^(phone|telephone|tel) number$`,
			`^(mobile|cell|work phone|mobile phone)$`,
			`phone`,
		),
		field(FieldTitle, "title",
			`^title$`,
			`^job title$`,
			`^(position|role)$`,
			`title`,
		),
		field(FieldCompany, "company",
			`^company$`,
			`^(company name|organization|organisation|account|account name)$`,
			`^(lead|lead name|employer)$`,
			`company`,
		),
		field(FieldNotes, "notes",
			`^notes?$`,
			`^comments?$`,
			`(notes?|comments?)`,
		),
	},
}

var opportunitySchema = schema{
	entity: EntityOpportunity,
	fields: []fieldPatterns{
		field(FieldName, "opportunity name",
			`^(opportunity|opportunity name|deal|deal name)$`,
			`^name$`,
			`^(title|subject)$`,
			`(opportunity|deal)`,
		),
		field(FieldCompany, "company",
			`^(company|company name)$`,
			`^(account|account name|organization|organisation)$`,
			`^lead( name)?$`,
			`(company|account)`,
		),
		field(FieldValue, "value",
			`^(value|amount)$`,
			`^(deal|opportunity) (value|amount|size)$`,
			`^(revenue|expected revenue|price)$`,
			`(value|amount)`,
		),
		field(FieldStage, "stage",
			`^stage$`,
			`^(deal|sales|pipeline) stage$`,
			`^status$`,
			`stage`,
		),
		field(FieldCloseDate, "close date",
			`^close date$`,
			`^(expected close|closing|close by) date$`,
			`^(close|closed|close by)$`,
			`close`,
		),
		field(FieldProbability, "probability",
			`^probability$`,
			`^(win probability|likelihood|probability %)$`,
			`(probability|%)`,
		),
		field(FieldNotes, "notes",
			`^notes?$`,
			`^(comments?|description)$`,
			`(notes?|comments?)`,
		),
	},
}

var taskSchema = schema{
	entity: EntityTask,
	fields: []fieldPatterns{
		field(FieldTitle, "title",
			`^(title|task|task name|subject)$`,
			`^name$`,
			`(title|subject|task)`,
		),
		field(FieldDescription, "description",
			`^(description|details)$`,
			`^notes?$`,
			`descri`,
		),
		field(FieldDueDate, "due date",
			`^(due date|due|deadline|due by)$`,
			`^date$`,
			`(due|deadline)`,
		),
		field(FieldPriority, "priority",
			`^priority$`,
			`^(importance|urgency)$`,
			`priorit`,
		),
		field(FieldStatus, "status",
			`^status$`,
			`^(state|task status)$`,
			`status`,
		),
		field(FieldCompany, "company",
			`^(company|company name|lead|lead name|account|related to)$`,
			`(company|lead)`,
		),
	},
}

var schemas = map[EntityType]*schema{
	EntityTransaction: &transactionSchema,
	EntityLead:        &leadSchema,
	EntityContact:     &contactSchema,
	EntityOpportunity: &opportunitySchema,
	EntityTask:        &taskSchema,
}

func lookup(entity EntityType) (*schema, error) {
	s, ok := schemas[entity]
	if !ok {
		return nil, ErrUnsupportedEntity
	}
	return s, nil
}

// Fields returns the canonical field names of an entity in table order.
func Fields(entity EntityType) []string {
	s, err := lookup(entity)
	if err != nil {
		return nil
	}
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.field
	}
	return out
}

// Label returns the human-readable name of a canonical field.
func Label(entity EntityType, name string) string {
	if s, err := lookup(entity); err == nil {
		for _, f := range s.fields {
			if f.field == name {
				return f.label
			}
		}
	}
	return strings.ReplaceAll(name, "_", " ")
}
