// Package experiment models the parameter sets a remote lab publishes for an
// apparatus: the inputs a user can set and the files attached to them.
package experiment

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/sample"
)

// IDParam is the selected-parameter key carrying the experiment identifier.
// It is sent to the data source but never exported with the run.
const IDParam = "id"

// Group places an input in the parameter form.
type Group int

const (
	GroupController Group = iota
	GroupGeneral
	GroupHidden
)

var groupNames = []string{"Controller", "General", "Hidden"}

func (g Group) String() string { return enumName(groupNames, int(g)) }

func (g Group) MarshalJSON() ([]byte, error) { return json.Marshal(g.String()) }

func (g *Group) UnmarshalJSON(data []byte) error {
	v, err := parseEnum(groupNames, data)
	*g = Group(v)
	return errors.Wrap(err, "input group")
}

// InputType selects the form control for an input.
type InputType int

const (
	InputText InputType = iota
	InputSelect
)

var inputTypeNames = []string{"Text", "Select"}

func (t InputType) String() string { return enumName(inputTypeNames, int(t)) }

func (t InputType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *InputType) UnmarshalJSON(data []byte) error {
	v, err := parseEnum(inputTypeNames, data)
	*t = InputType(v)
	return errors.Wrap(err, "input type")
}

type FileType int

const (
	FileTooltip FileType = iota
	FileDocument
	FileModel3D
	FileModel
	FileImage
	FilePDF
)

var fileTypeNames = []string{"Tooltip", "Document", "3D model", "Model", "Image", "PDF_public"}

func (t FileType) String() string { return enumName(fileTypeNames, int(t)) }

func (t FileType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *FileType) UnmarshalJSON(data []byte) error {
	v, err := parseEnum(fileTypeNames, data)
	*t = FileType(v)
	return errors.Wrap(err, "file type")
}

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}

// parseEnum accepts a case-insensitive name or an ordinal.
func parseEnum(names []string, data []byte) (int, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return 0, errors.Errorf("invalid value %s", data)
		}
		s = strconv.Itoa(n)
	}
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(names) {
		return n, nil
	}
	return 0, errors.Errorf("unknown value %q", s)
}

// Controller is one experiment available for an apparatus.
type Controller struct {
	ExperimentID sample.Text   `json:"id"`
	Name         string        `json:"controller"`
	Parameters   *ParameterSet `json:"-"`
}

// ParameterSet is the full metadata of an experiment.
type ParameterSet struct {
	Inputs []InputParameter `json:"inputs"`
	Files  []File           `json:"files"`
}

type InputParameter struct {
	Order     int          `json:"id"`
	SchemaVar string       `json:"name"`
	Label     string       `json:"label"`
	Group     Group        `json:"group"`
	Type      InputType    `json:"type"`
	Values    []InputValue `json:"input"`
}

// InputValue is a default for text inputs or an option for select inputs.
type InputValue struct {
	Name  sample.Text `json:"name"`
	Value sample.Text `json:"value"`
}

type File struct {
	FileName   string   `json:"filename"`
	URL        string   `json:"url"`
	PublicURL  string   `json:"public_url"`
	Visibility string   `json:"visibility"`
	Info       FileInfo `json:"filetype"`
}

type FileInfo struct {
	Type FileType `json:"file_type"`
	Path string   `json:"file_path"`
}

// Input returns the input with the given schema variable.
func (p *ParameterSet) Input(schemaVar string) (InputParameter, bool) {
	if p == nil {
		return InputParameter{}, false
	}
	for _, in := range p.Inputs {
		if in.SchemaVar == schemaVar {
			return in, true
		}
	}
	return InputParameter{}, false
}

// Default returns the name of the first default value of an input.
func (p *ParameterSet) Default(schemaVar string) (string, bool) {
	in, ok := p.Input(schemaVar)
	if !ok || len(in.Values) == 0 {
		return "", false
	}
	return in.Values[0].Name.String(), true
}

// Initial returns what a form shows before the user edits it: the first
// default value of text inputs and the first option name of select inputs.
func (in InputParameter) Initial() string {
	if len(in.Values) == 0 {
		return ""
	}
	if in.Type == InputSelect {
		return in.Values[0].Name.String()
	}
	return in.Values[0].Value.String()
}

// Visible returns the non-hidden inputs ordered by group, then by order.
func (p *ParameterSet) Visible() []InputParameter {
	if p == nil {
		return nil
	}
	var out []InputParameter
	for _, in := range p.Inputs {
		if in.Group != GroupHidden {
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// Selection builds the parameters sent to the data source: the experiment id,
// the initial value of every visible input and then the overrides.
func (p *ParameterSet) Selection(experimentID string, overrides map[string]string) map[string]string {
	sel := map[string]string{IDParam: experimentID}
	for _, in := range p.Visible() {
		sel[in.SchemaVar] = in.Initial()
	}
	for k, v := range overrides {
		if k == IDParam {
			continue
		}
		sel[k] = v
	}
	return sel
}

// DocumentationLink returns baseURL joined with the public URL of the first
// public PDF, falling back to the first document. It is empty when neither
// exists.
func (p *ParameterSet) DocumentationLink(baseURL string) string {
	if p == nil {
		return ""
	}
	for _, want := range []FileType{FilePDF, FileDocument} {
		for _, f := range p.Files {
			if f.Info.Type == want && f.PublicURL != "" {
				return baseURL + f.PublicURL
			}
		}
	}
	return ""
}
