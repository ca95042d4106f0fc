// Package validation checks raw blueprint payloads and normalizes them into
// typed values.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dszwed/wp-blueprints/internal/models"
	"github.com/dszwed/wp-blueprints/internal/schema"
	"github.com/dszwed/wp-blueprints/internal/versions"
)

// MaxNameLength is the longest accepted blueprint name, in characters
const MaxNameLength = 255

// DefaultLandingPage is stored when a new blueprint names no landing page
const DefaultLandingPage = "/wp-admin/"

type mode int

const (
	modeCreate mode = iota
	modeUpdate
)

// Validator checks create and update payloads against the supported versions
// and the step schema
type Validator struct {
	catalog *versions.Catalog
}

// New creates a Validator for the given version catalog
func New(catalog *versions.Catalog) *Validator {
	return &Validator{catalog: catalog}
}

// ValidateCreate validates a full payload. Missing status defaults to public
// and a missing landing page to DefaultLandingPage.
// On failure the returned error is *Errors listing every violation.
func (v *Validator) ValidateCreate(raw map[string]interface{}) (*models.BlueprintPayload, error) {
	p, errs := v.validate(raw, modeCreate)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	if p.Status == nil {
		s := models.StatusPublic
		p.Status = &s
	}
	return p, nil
}

// ValidateUpdate validates a partial payload. Every top-level field is
// optional, but a present group must carry all of its sub-fields.
func (v *Validator) ValidateUpdate(raw map[string]interface{}) (*models.BlueprintPayload, error) {
	p, errs := v.validate(raw, modeUpdate)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

func (v *Validator) validate(raw map[string]interface{}, m mode) (*models.BlueprintPayload, *Errors) {
	errs := &Errors{}
	p := &models.BlueprintPayload{}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	// name
	if val, ok := raw["name"]; ok || m == modeCreate {
		if name, ok := requiredString(errs, "name", val, "The blueprint name is required.", "The blueprint name must be a string."); ok {
			name = strings.TrimSpace(name)
			switch {
			case name == "":
				errs.Add("name", "The blueprint name is required.")
			case utf8.RuneCountInString(name) > MaxNameLength:
				errs.Add("name", fmt.Sprintf("The blueprint name cannot exceed %d characters.", MaxNameLength))
			default:
				p.Name = &name
			}
		}
	}

	// description
	if val, ok := raw["description"]; ok {
		switch d := val.(type) {
		case nil:
			p.DescriptionSet = true
		case string:
			p.Description = &d
			p.DescriptionSet = true
		default:
			errs.Add("description", "The description must be a string.")
		}
	}

	// status
	if val, ok := raw["status"]; ok {
		if s, ok := requiredString(errs, "status", val, "The blueprint status is required.", "The blueprint status must be a string."); ok {
			status := models.Status(s)
			if status.Valid() {
				p.Status = &status
			} else {
				errs.Add("status", "The blueprint status must be either public or private.")
			}
		}
	}

	// landingPage, defaulted on create when absent
	if val, ok := raw["landingPage"]; ok {
		if lp, ok := requiredString(errs, "landingPage", val, "The landing page is required.", "The landing page must be a string."); ok {
			p.LandingPage = &lp
		}
	} else if m == modeCreate {
		lp := DefaultLandingPage
		p.LandingPage = &lp
	}

	// preferredVersions
	if val, ok := raw["preferredVersions"]; ok || m == modeCreate {
		if group, ok := requiredObject(errs, "preferredVersions", val, "The preferred versions are required.", "The preferred versions must be an object."); ok {
			php := v.versionField(errs, group, "php", "PHP", v.catalog.PHP)
			wp := v.versionField(errs, group, "wp", "WordPress", v.catalog.WordPress)
			if php != "" && wp != "" {
				p.PreferredVersions = &models.PreferredVersions{PHP: php, WP: wp}
			}
		} else if val == nil {
			// Report the sub-fields too so clients can highlight each input
			errs.Add("preferredVersions.php", "The PHP version is required.")
			errs.Add("preferredVersions.wp", "The WordPress version is required.")
		}
	}

	// features
	if val, ok := raw["features"]; ok || m == modeCreate {
		if group, ok := requiredObject(errs, "features", val, "The features are required.", "The features must be an object."); ok {
			if n, ok := booleanField(errs, "features.networking", group["networking"]); ok {
				p.Features = &models.Features{Networking: n}
			}
		} else if val == nil {
			errs.Add("features.networking", "The networking feature is required.")
		}
	}

	// steps
	if val, ok := raw["steps"]; ok || m == modeCreate {
		switch list := val.(type) {
		case nil:
			errs.Add("steps", "The steps are required.")
		case []interface{}:
			steps := make(models.Steps, 0, len(list))
			for i, item := range list {
				if step := validateStep(errs, i, item); step != nil {
					steps = append(steps, step)
				}
			}
			if len(steps) == len(list) {
				p.Steps = steps
				p.StepsSet = true
			}
		default:
			errs.Add("steps", "The steps must be an array.")
		}
	}

	return p, errs
}

func (v *Validator) versionField(errs *Errors, group map[string]interface{}, key, label string, set versions.Set) string {
	path := "preferredVersions." + key
	val, ok := requiredString(errs, path, group[key],
		fmt.Sprintf("The %s version is required.", label),
		fmt.Sprintf("The %s version must be a string.", label))
	if !ok {
		return ""
	}
	if !set.Contains(val) {
		errs.Add(path, fmt.Sprintf("The %s version must be one of: %s.", label, strings.Join(set.Values(), ", ")))
		return ""
	}
	return val
}

func validateStep(errs *Errors, i int, item interface{}) models.Step {
	prefix := fmt.Sprintf("steps[%d]", i)

	obj, ok := item.(map[string]interface{})
	if !ok {
		errs.Add(prefix, "Each step must be an object.")
		return nil
	}

	kindPath := prefix + ".kind"
	k, ok := requiredString(errs, kindPath, obj["kind"], "Each step must have a kind.", "The step kind must be a string.")
	if !ok {
		return nil
	}
	kind := models.StepKind(k)
	if !schema.IsKnownKind(kind) {
		errs.Add(kindPath, fmt.Sprintf("The step kind must be one of: %s.", kindList()))
		return nil
	}

	failed := false
	for _, f := range schema.RequiredFieldsFor(kind) {
		path := prefix + "." + f.Path
		val, found := lookup(obj, f.Path)
		switch {
		case !found || val == nil:
			errs.Add(path, fmt.Sprintf("The %s field is required for %s steps.", f.Path, kind))
			failed = true
		case f.Type == schema.TypeString:
			if _, ok := val.(string); !ok {
				errs.Add(path, fmt.Sprintf("The %s field must be a string.", f.Path))
				failed = true
			}
		case f.Type == schema.TypeObject:
			if _, ok := val.(map[string]interface{}); !ok {
				errs.Add(path, fmt.Sprintf("The %s field must be an object.", f.Path))
				failed = true
			}
		}
	}
	if failed {
		return nil
	}

	return buildStep(kind, obj)
}

// buildStep assumes every required field of kind is present and well typed.
// Fields of other kinds are dropped here.
func buildStep(kind models.StepKind, obj map[string]interface{}) models.Step {
	str := func(path string) string {
		v, _ := lookup(obj, path)
		s, _ := v.(string)
		return s
	}
	pkg := func(group string) models.PackageRef {
		return models.PackageRef{Resource: str(group + ".resource"), Slug: str(group + ".slug")}
	}

	switch kind {
	case models.KindInstallPlugin:
		return models.InstallPluginStep{PluginData: pkg("pluginData")}
	case models.KindActivatePlugin:
		return models.ActivatePluginStep{PluginData: pkg("pluginData")}
	case models.KindInstallTheme:
		return models.InstallThemeStep{ThemeData: pkg("themeData")}
	case models.KindActivateTheme:
		return models.ActivateThemeStep{ThemeData: pkg("themeData")}
	case models.KindWriteFile:
		return models.WriteFileStep{Path: str("path"), Contents: str("contents")}
	case models.KindRunCode:
		return models.RunCodeStep{Code: str("code")}
	case models.KindSetSiteOptions:
		src, _ := obj["options"].(map[string]interface{})
		opts := make(map[string]interface{}, len(src))
		for k, v := range src {
			opts[k] = v
		}
		return models.SetSiteOptionsStep{Options: opts}
	}
	return nil
}

// lookup resolves a dotted path through nested objects
func lookup(obj map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func requiredString(errs *Errors, path string, val interface{}, requiredMsg, typeMsg string) (string, bool) {
	switch s := val.(type) {
	case nil:
		errs.Add(path, requiredMsg)
	case string:
		return s, true
	default:
		errs.Add(path, typeMsg)
	}
	return "", false
}

func requiredObject(errs *Errors, path string, val interface{}, requiredMsg, typeMsg string) (map[string]interface{}, bool) {
	switch o := val.(type) {
	case nil:
		errs.Add(path, requiredMsg)
	case map[string]interface{}:
		return o, true
	default:
		errs.Add(path, typeMsg)
	}
	return nil, false
}

// booleanField accepts true, false, 1, 0, "1" and "0"
func booleanField(errs *Errors, path string, val interface{}) (bool, bool) {
	switch b := val.(type) {
	case nil:
		errs.Add(path, "The networking feature is required.")
		return false, false
	case bool:
		return b, true
	case json.Number:
		switch b.String() {
		case "1":
			return true, true
		case "0":
			return false, true
		}
	case float64:
		switch b {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case string:
		switch b {
		case "1":
			return true, true
		case "0":
			return false, true
		}
	}
	errs.Add(path, "The networking feature must be true or false.")
	return false, false
}

func kindList() string {
	names := make([]string, 0, len(models.StepKinds))
	for _, k := range models.StepKinds {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
