// Package schema declares which fields each step kind requires.
package schema

import "github.com/dszwed/wp-blueprints/internal/models"

// FieldType is the JSON type a required field must have
type FieldType int

const (
	TypeString FieldType = iota
	TypeObject
)

func (t FieldType) String() string {
	if t == TypeObject {
		return "object"
	}
	return "string"
}

// Field is a required field of a step, addressed by a dotted path relative
// to the step object
type Field struct {
	Path string
	Type FieldType
}

var (
	pluginFields = []Field{{"pluginData.resource", TypeString}, {"pluginData.slug", TypeString}}
	themeFields  = []Field{{"themeData.resource", TypeString}, {"themeData.slug", TypeString}}

	required = map[models.StepKind][]Field{
		models.KindInstallPlugin:  pluginFields,
		models.KindActivatePlugin: pluginFields,
		models.KindInstallTheme:   themeFields,
		models.KindActivateTheme:  themeFields,
		models.KindWriteFile:      {{"path", TypeString}, {"contents", TypeString}},
		models.KindRunCode:        {{"code", TypeString}},
		models.KindSetSiteOptions: {{"options", TypeObject}},
	}
)

// RequiredFieldsFor returns the fields kind requires, in reporting order.
// Unknown kinds require nothing.
func RequiredFieldsFor(kind models.StepKind) []Field {
	fields := required[kind]
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// IsKnownKind reports whether kind is one of the supported step kinds
func IsKnownKind(kind models.StepKind) bool {
	_, ok := required[kind]
	return ok
}
