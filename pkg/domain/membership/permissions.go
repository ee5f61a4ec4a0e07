package membership

import "slices"

// Field names a boolean capability flag on a membership.
type Field string

// The full permission field set. This list is the single source of
// truth shared by validation, serialization and storage; fields are
// appended, never reordered or removed.
const (
	FieldAdmin          Field = "admin"
	FieldEdit           Field = "edit"
	FieldManage         Field = "manage"
	FieldDesign         Field = "design"
	FieldPromote        Field = "promote"
	FieldCheckIn        Field = "check_in"
	FieldGuestsReport   Field = "guests_report"
	FieldCreatable      Field = "creatable"
	FieldReceivesEmails Field = "receives_emails"
)

func (f Field) String() string {
	return string(f)
}

// Fields returns every permission field, in stable order.
func Fields() []Field {
	return []Field{
		FieldAdmin,
		FieldEdit,
		FieldManage,
		FieldDesign,
		FieldPromote,
		FieldCheckIn,
		FieldGuestsReport,
		FieldCreatable,
		FieldReceivesEmails,
	}
}

// creatableFields are the event permissions that must all be granted
// together when a membership is flagged creatable.
var creatableFields = []Field{
	FieldEdit,
	FieldManage,
	FieldDesign,
	FieldPromote,
	FieldCheckIn,
	FieldGuestsReport,
}

// Model is the versioned permission registry. Exclusions subtract
// fields from the creatable-required set for deployments that have
// toggled a capability off product-wide.
type Model struct {
	exclusions []Field
}

// DefaultModel returns the registry with no exclusions.
func DefaultModel() *Model {
	return &Model{}
}

// WithCreatableExclusions returns a copy of the model that does not
// require the given fields for creatable memberships.
func (m *Model) WithCreatableExclusions(fields ...Field) *Model {
	return &Model{exclusions: slices.Clone(fields)}
}

// Fields returns every permission field.
func (m *Model) Fields() []Field {
	return Fields()
}

// RequiredForCreatable returns the fields that must all be true when
// the creatable flag is set.
func (m *Model) RequiredForCreatable() []Field {
	required := make([]Field, 0, len(creatableFields))
	for _, f := range creatableFields {
		if !slices.Contains(m.exclusions, f) {
			required = append(required, f)
		}
	}
	return required
}

// Permissions holds the boolean capability flags of a membership.
type Permissions struct {
	Admin          bool `json:"admin"`
	Edit           bool `json:"edit"`
	Manage         bool `json:"manage"`
	Design         bool `json:"design"`
	Promote        bool `json:"promote"`
	CheckIn        bool `json:"check_in"`
	GuestsReport   bool `json:"guests_report"`
	Creatable      bool `json:"creatable"`
	ReceivesEmails bool `json:"receives_emails"`
}

// Get returns the value of a permission field.
func (p Permissions) Get(f Field) bool {
	switch f {
	case FieldAdmin:
		return p.Admin
	case FieldEdit:
		return p.Edit
	case FieldManage:
		return p.Manage
	case FieldDesign:
		return p.Design
	case FieldPromote:
		return p.Promote
	case FieldCheckIn:
		return p.CheckIn
	case FieldGuestsReport:
		return p.GuestsReport
	case FieldCreatable:
		return p.Creatable
	case FieldReceivesEmails:
		return p.ReceivesEmails
	}
	return false
}

// Set assigns the value of a permission field.
func (p *Permissions) Set(f Field, v bool) {
	switch f {
	case FieldAdmin:
		p.Admin = v
	case FieldEdit:
		p.Edit = v
	case FieldManage:
		p.Manage = v
	case FieldDesign:
		p.Design = v
	case FieldPromote:
		p.Promote = v
	case FieldCheckIn:
		p.CheckIn = v
	case FieldGuestsReport:
		p.GuestsReport = v
	case FieldCreatable:
		p.Creatable = v
	case FieldReceivesEmails:
		p.ReceivesEmails = v
	}
}
