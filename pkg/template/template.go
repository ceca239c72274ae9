// Package template renders dynamic action configuration against the record
// and prior action results.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/pipewise/pipewise/pkg/protocol"
)

// RenderWithContext renders input with the action context's record fields,
// prior results and trigger exposed as template data.
func RenderWithContext(input string, actx protocol.ActionContext) (any, error) {
	var recordData map[string]any

	if actx.Record != nil {
		recordData = make(map[string]any, len(actx.Record.Data))
		for key, value := range actx.Record.Data {
			recordData[key] = value.Any()
		}
	}

	data := map[string]any{
		"record": map[string]any{
			"id":        recordID(actx),
			"stage":     recordStage(actx),
			"module_id": recordModule(actx),
			"data":      recordData,
		},
		"results": actx.Results,
		"trigger": string(actx.Trigger),
		"actor":   actx.ActorID,
	}

	return Render(input, data)
}

// Render executes the template and coerces the output back to JSON, number
// or boolean when it parses as one.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("action_config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// RenderString is Render for callers that need a plain string out.
func RenderString(templateStr string, actx protocol.ActionContext) (string, error) {
	rendered, err := RenderWithContext(templateStr, actx)
	if err != nil {
		return "", err
	}

	switch value := rendered.(type) {
	case string:
		return value, nil
	default:
		return fmt.Sprintf("%v", value), nil
	}
}

func recordID(actx protocol.ActionContext) string {
	if actx.Record == nil {
		return ""
	}

	return actx.Record.ID
}

func recordStage(actx protocol.ActionContext) string {
	if actx.Record == nil {
		return ""
	}

	return actx.Record.Stage
}

func recordModule(actx protocol.ActionContext) string {
	if actx.Record == nil {
		return ""
	}

	return actx.Record.ModuleID
}
