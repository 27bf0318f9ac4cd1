package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxContactsPerLead bounds how many contacts one lead row can carry.
const MaxContactsPerLead = 5

// Contact sub-fields grouped into a slot.
const (
	ContactFirstName = "first_name"
	ContactLastName  = "last_name"
	ContactEmail     = "email"
	ContactPhone     = "phone"
	ContactTitle     = "title"
)

// ContactFields lists slot sub-fields in display order.
var ContactFields = []string{ContactFirstName, ContactLastName, ContactEmail, ContactPhone, ContactTitle}

// ContactSlot groups the headers describing one contact of a lead row.
type ContactSlot struct {
	SlotIndex int           `json:"slotIndex" yaml:"slot_index"`
	SlotLabel string        `json:"slotLabel" yaml:"slot_label"`
	Fields    ColumnMapping `json:"fields" yaml:"fields"`
}

func (s ContactSlot) populated() bool {
	for _, f := range ContactFields {
		if s.Fields.Has(f) {
			return true
		}
	}
	return false
}

type contactFieldPatterns struct {
	field     string
	primary   *regexp.Regexp
	secondary *regexp.Regexp
	numbered  []*regexp.Regexp
	generic   *regexp.Regexp
}

func contactPatterns(field, alternatives string) contactFieldPatterns {
	one := func(expr string) *regexp.Regexp { return compile(expr)[0] }
	return contactFieldPatterns{
		field:     field,
		primary:   one(`^(primary|main) (contact )?(` + alternatives + `)$`),
		secondary: one(`^(secondary|other|second) (contact )?(` + alternatives + `)$`),
		numbered: []*regexp.Regexp{
			one(`^contact (\d+) (` + alternatives + `)$`),
			one(`^(` + alternatives + `) (\d+)$`),
		},
		generic: one(`^(contact )?(` + alternatives + `)$`),
	}
}

var slotPatterns = []contactFieldPatterns{
	contactPatterns(ContactFirstName, `first name|fname|first|given name`),
	contactPatterns(ContactLastName, `last name|lname|last|surname`),
	contactPatterns(ContactEmail, `e mail address|e mail`),
	contactPatterns(ContactPhone, `phone number|phone|mobile|telephone|tel`),
	contactPatterns(ContactTitle, `job title|title|position|role`),
}

// explicitSlot returns the slot a header names outright.
func (p contactFieldPatterns) explicitSlot(header string) (int, bool) {
	if p.primary.MatchString(header) {
		return 0, true
	}
	if p.secondary.MatchString(header) {
		return 1, true
	}
	for _, re := range p.numbered {
		m := re.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		for _, group := range m[1:] {
			if n, err := strconv.Atoi(group); err == nil {
				return clampSlot(n - 1), true
			}
		}
	}
	return 0, false
}

func clampSlot(i int) int {
	if i < 0 {
		return 0
	}
	if i >= MaxContactsPerLead {
		return MaxContactsPerLead - 1
	}
	return i
}

// SlotLabel names a slot for display.
func SlotLabel(i int) string {
	switch i {
	case 0:
		return "Primary Contact"
	case 1:
		return "Secondary Contact"
	default:
		return fmt.Sprintf("Contact %d", i+1)
	}
}

func newSlot(i int) ContactSlot {
	fields := make(ColumnMapping, len(ContactFields))
	for _, f := range ContactFields {
		fields[f] = ""
	}
	return ContactSlot{SlotIndex: i, SlotLabel: SlotLabel(i), Fields: fields}
}

// DetectContactSlots groups contact headers of a lead export into slots.
//
// The first pass places headers that name their slot (primary/main,
// secondary/other, contact_2_email, phone_3). The second pass places bare
// headers such as "Email" or "First Name" into the primary slot when that
// field is still free. Each header is used at most once. When nothing
// matches, a single empty primary slot is returned.
func DetectContactSlots(headers []string) []ContactSlot {
	slots := make([]ContactSlot, MaxContactsPerLead)
	for i := range slots {
		slots[i] = newSlot(i)
	}
	assigned := make(map[int]bool, len(headers))

	for i, header := range headers {
		h := strings.TrimSpace(header)
		if h == "" {
			continue
		}
		for _, p := range slotPatterns {
			slot, ok := p.explicitSlot(h)
			if !ok {
				continue
			}
			if !slots[slot].Fields.Has(p.field) {
				slots[slot].Fields[p.field] = header
				assigned[i] = true
			}
			break
		}
	}

	for i, header := range headers {
		h := strings.TrimSpace(header)
		if h == "" || assigned[i] {
			continue
		}
		for _, p := range slotPatterns {
			if !p.generic.MatchString(h) {
				continue
			}
			if !slots[0].Fields.Has(p.field) {
				slots[0].Fields[p.field] = header
				assigned[i] = true
			}
			break
		}
	}

	var out []ContactSlot
	for _, s := range slots {
		if s.populated() {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []ContactSlot{newSlot(0)}
	}
	return out
}
