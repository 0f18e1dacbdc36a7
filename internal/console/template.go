package console

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pixil98/go-satchel/internal/display"
)

// templateFuncs provides utility functions for templates.
var templateFuncs = func() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["titled"] = display.Title
	return fm
}()

// ExpandTemplate expands a template string using the provided data.
// The data can be any struct - templates access fields via {{ .FieldName }}.
func ExpandTemplate(tmplStr string, data any) (string, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

const whoTemplate = `Participants Online: {{ len . }}
{{- range . }}
  [{{ .ID }}] {{ .Name }} at ({{ printf "%.1f" .Position.X }}, {{ printf "%.1f" .Position.Y }}, {{ printf "%.1f" .Position.Z }})
{{- end }}`

const containersTemplate = `Containers: {{ len . }}
{{- range . }}
  {{ printf "%-12s" (toString .ID) }} {{ printf "%-16s" (.Name | default "-") }} owner {{ .Owner }}, {{ .Slots }} slots{{ if .Hotbar }} ({{ .Hotbar }} hotbar){{ end }}
{{- end }}`

const inspectTemplate = `{{ .Name | default "Container" }} [{{ .ID }}] version {{ .Version }}, policy {{ .Policy }}
{{- range .Slots }}
  {{ if .Hotbar }}*{{ else }} {{ end }}{{ printf "%3d" .Index }}: {{ if .Empty }}-{{ else }}{{ .Name | titled }} x{{ .Quantity }}{{ if .Instanced }} ({{ .Durability }}/{{ .MaxDurability }}){{ end }}{{ end }}
{{- end }}`
