package rag

import (
	"encoding/json"
	"fmt"
	"strings"

	"excelinsights/domain/insight"

	"github.com/xeipuuv/gojsonschema"
)

// suggestableCharts are the chart types a model may propose.
var suggestableCharts = []string{"bar", "hbar", "line", "area", "pie", "scatter", "histogram", "box"}

const chartSuggestionSchema = `{
  "type": "object",
  "required": ["type", "x"],
  "properties": {
    "type": {"enum": ["bar", "hbar", "line", "area", "pie", "scatter", "histogram", "box"]},
    "x": {"type": "string", "minLength": 1},
    "y": {"type": ["string", "null"]},
    "aggregation": {"enum": ["sum", "avg", "count", "min", "max", null]},
    "title": {"type": ["string", "null"]}
  }
}`

var chartSchema = mustSchema(chartSuggestionSchema)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid chart suggestion schema: %v", err))
	}
	return schema
}

// parsedReply is a model reply after cleanup. When the content was not the
// requested JSON object, Answer holds the raw text and Structured is false.
type parsedReply struct {
	Answer     string
	Chart      *insight.ChartSuggestion
	Structured bool
	// ChartError explains why a proposed chart was discarded.
	ChartError string
}

// parseModelReply extracts {answer, chart} from a completion. A chart that
// fails schema validation is dropped, the answer is kept.
func parseModelReply(content string) parsedReply {
	raw := strings.TrimSpace(content)
	cleaned := cleanJSONContent(raw)

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return parsedReply{Answer: raw}
	}
	answer, ok := doc["answer"].(string)
	if !ok || strings.TrimSpace(answer) == "" {
		return parsedReply{Answer: raw}
	}
	reply := parsedReply{Answer: strings.TrimSpace(answer), Structured: true}

	chartDoc, present := doc["chart"]
	if !present || chartDoc == nil {
		return reply
	}
	if err := validateChartSuggestion(chartDoc); err != nil {
		reply.ChartError = err.Error()
		return reply
	}
	encoded, _ := json.Marshal(chartDoc)
	var suggestion insight.ChartSuggestion
	if err := json.Unmarshal(encoded, &suggestion); err != nil {
		reply.ChartError = err.Error()
		return reply
	}
	reply.Chart = &suggestion
	return reply
}

func validateChartSuggestion(doc interface{}) error {
	result, err := chartSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("chart suggestion rejected: %s", strings.Join(errs, "; "))
	}
	return nil
}

// cleanJSONContent strips markdown fences and any chatter around the first
// JSON object in content.
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end < start {
		return content
	}
	return content[start : end+1]
}
