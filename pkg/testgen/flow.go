package testgen

import (
	"strings"
	"text/template"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/inspector"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

// flowData is what the flow templates see.
type flowData struct {
	Feature core.PageFeature
	Inputs  []core.ElementRecord
	Buttons []core.ElementRecord
	Images  []core.ElementRecord
	Media   []core.ElementRecord
	Extra   map[string]interface{}
}

var flowFuncs = template.FuncMap{
	// locator renders the element's preferred maestro selector line.
	"locator": func(e core.ElementRecord) string {
		strategy, value, ok := inspector.LocatorFor(e)
		if !ok {
			return `text: ""`
		}
		switch strategy {
		case "id":
			return `id: "` + value + `"`
		case "accessibility id":
			return `accessibilityText: "` + value + `"`
		case "class name":
			return `className: "` + value + `"`
		default:
			return `text: "` + e.Text + `"`
		}
	},
}

func flowTemplate(body string) *template.Template {
	return template.Must(template.New("flow").Funcs(flowFuncs).Parse(body))
}

// The registry of screen kinds the harness knows how to turn into a flow.
var flowTemplates = map[string]*template.Template{
	"login": flowTemplate(`# generated login flow for {{ .Feature.Activity }}
appId: {{ .Extra.appId }}
---
- launchApp
{{- range .Inputs }}
- tapOn:
    {{ locator . }}
- inputText: "{{ $.Extra.sampleInput }}"
{{- end }}
{{- range .Buttons }}
- tapOn:
    {{ locator . }}
{{- end }}
- assertVisible:
    {{ .Extra.successAssertion }}
`),

	"home": flowTemplate(`# generated home flow for {{ .Feature.Activity }}
appId: {{ .Extra.appId }}
---
- launchApp
{{- range .Buttons }}
- assertVisible:
    {{ locator . }}
{{- end }}
{{- range .Images }}
- assertVisible:
    {{ locator . }}
{{- end }}
- back
`),

	"product_detail": flowTemplate(`# generated product detail flow for {{ .Feature.Activity }}
appId: {{ .Extra.appId }}
---
- launchApp
{{- range .Images }}
- assertVisible:
    {{ locator . }}
{{- end }}
{{- range .Media }}
- tapOn:
    {{ locator . }}
{{- end }}
{{- range .Buttons }}
- tapOn:
    {{ locator . }}
{{- end }}
- back
`),
}

// RenderFlow renders the flow file for a known screen kind from the
// page's element inventory. Unknown kinds report ok=false; they are an
// expected outcome, not an error. Extra supplies appId, sampleInput, and
// the success assertion, each defaulted when absent.
func RenderFlow(kind string, feature core.PageFeature, extra map[string]interface{}) (string, bool) {
	tmpl, ok := flowTemplates[kind]
	if !ok {
		return "", false
	}

	data := flowData{Feature: feature, Extra: map[string]interface{}{
		"appId":            "com.example.app",
		"sampleInput":      SampleInput,
		"successAssertion": `text: ".*"`,
	}}
	for k, v := range extra {
		data.Extra[k] = v
	}

	for _, e := range feature.Elements {
		switch e.InferredType {
		case core.TypeInput:
			data.Inputs = append(data.Inputs, e)
		case core.TypeButton:
			data.Buttons = append(data.Buttons, e)
		case core.TypeImage:
			data.Images = append(data.Images, e)
		case core.TypeVideo, core.TypeAudio:
			data.Media = append(data.Media, e)
		}
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		logger.Error("flow template %q failed: %v", kind, err)
		return "", false
	}
	return b.String(), true
}

// FlowKinds lists the registered screen kinds.
func FlowKinds() []string {
	kinds := make([]string, 0, len(flowTemplates))
	for k := range flowTemplates {
		kinds = append(kinds, k)
	}
	return kinds
}
