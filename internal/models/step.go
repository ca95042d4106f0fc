package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StepKind discriminates the step variants
type StepKind string

const (
	KindInstallPlugin  StepKind = "installPlugin"
	KindInstallTheme   StepKind = "installTheme"
	KindActivatePlugin StepKind = "activatePlugin"
	KindActivateTheme  StepKind = "activateTheme"
	KindWriteFile      StepKind = "writeFile"
	KindRunCode        StepKind = "runCode"
	KindSetSiteOptions StepKind = "setSiteOptions"
)

// StepKinds lists every known kind in documentation order
var StepKinds = []StepKind{
	KindInstallPlugin,
	KindInstallTheme,
	KindActivatePlugin,
	KindActivateTheme,
	KindWriteFile,
	KindRunCode,
	KindSetSiteOptions,
}

// Valid reports whether k is one of the known kinds
func (k StepKind) Valid() bool {
	for _, known := range StepKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Step is one instruction of a blueprint. The concrete types below are the
// only implementations.
type Step interface {
	Kind() StepKind
	isStep()
}

// PackageRef points at a plugin or theme to install or activate
type PackageRef struct {
	Resource string `json:"resource"`
	Slug     string `json:"slug"`
}

// InstallPluginStep installs a plugin from the referenced source
type InstallPluginStep struct {
	PluginData PackageRef `json:"pluginData"`
}

// ActivatePluginStep activates an installed plugin
type ActivatePluginStep struct {
	PluginData PackageRef `json:"pluginData"`
}

// InstallThemeStep installs a theme from the referenced source
type InstallThemeStep struct {
	ThemeData PackageRef `json:"themeData"`
}

// ActivateThemeStep switches the site to an installed theme
type ActivateThemeStep struct {
	ThemeData PackageRef `json:"themeData"`
}

// WriteFileStep writes Contents to Path inside the site
type WriteFileStep struct {
	Path     string `json:"path"`
	Contents string `json:"contents"`
}

// RunCodeStep executes a PHP snippet
type RunCodeStep struct {
	Code string `json:"code"`
}

// SetSiteOptionsStep values keep whatever JSON type the author sent
type SetSiteOptionsStep struct {
	Options map[string]interface{} `json:"options"`
}

// Kind identifies each variant on the wire
func (InstallPluginStep) Kind() StepKind  { return KindInstallPlugin }
func (ActivatePluginStep) Kind() StepKind { return KindActivatePlugin }
func (InstallThemeStep) Kind() StepKind   { return KindInstallTheme }
func (ActivateThemeStep) Kind() StepKind  { return KindActivateTheme }
func (WriteFileStep) Kind() StepKind      { return KindWriteFile }
func (RunCodeStep) Kind() StepKind        { return KindRunCode }
func (SetSiteOptionsStep) Kind() StepKind { return KindSetSiteOptions }

func (InstallPluginStep) isStep()  {}
func (ActivatePluginStep) isStep() {}
func (InstallThemeStep) isStep()   {}
func (ActivateThemeStep) isStep()  {}
func (WriteFileStep) isStep()      {}
func (RunCodeStep) isStep()        {}
func (SetSiteOptionsStep) isStep() {}

// Steps is an ordered step sequence with a kind-tagged JSON encoding:
// each element is an object whose "kind" key comes first.
type Steps []Step

// MarshalJSON encodes the steps, writing [] for a nil sequence
func (s Steps) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, step := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := MarshalStep(step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes previously encoded steps. It is used on trusted,
// already validated data; user payloads go through the validator instead.
func (s *Steps) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Steps, 0, len(raw))
	for i, r := range raw {
		step, err := UnmarshalStep(r)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		out = append(out, step)
	}
	*s = out
	return nil
}

// MarshalStep encodes a single step as {"kind": ..., <variant fields>}
func MarshalStep(step Step) ([]byte, error) {
	if step == nil {
		return nil, fmt.Errorf("nil step")
	}
	kind, err := json.Marshal(step.Kind())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(step)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	buf.Write(kind)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// UnmarshalStep decodes one kind-tagged step object
func UnmarshalStep(data []byte) (Step, error) {
	var head struct {
		Kind StepKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var step Step
	switch head.Kind {
	case KindInstallPlugin:
		var v InstallPluginStep
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		step = v
	case KindActivatePlugin:
		var v ActivatePluginStep
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		step = v
	case KindInstallTheme:
		var v InstallThemeStep
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		step = v
	case KindActivateTheme:
		var v ActivateThemeStep
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		step = v
	case KindWriteFile:
		var v WriteFileStep
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		step = v
	case KindRunCode:
		var v RunCodeStep
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		step = v
	case KindSetSiteOptions:
		var v SetSiteOptionsStep
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		step = v
	default:
		return nil, fmt.Errorf("unknown step kind %q", head.Kind)
	}
	return step, nil
}
