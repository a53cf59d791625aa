package insight

import (
	"strings"
	"time"

	"excelinsights/domain/chart"
	"excelinsights/domain/core"
)

// Source records how an answer was produced.
type Source string

const (
	SourceLLM       Source = "llm"
	SourceHeuristic Source = "heuristic"
	SourceCache     Source = "cache"
)

// Query is a one-shot natural-language question against a session's dataset.
type Query struct {
	SessionID core.SessionID `json:"session_id"`
	Question  string         `json:"question"`
}

// Normalized returns the trimmed question.
func (q Query) Normalized() string {
	return strings.TrimSpace(q.Question)
}

// Chunk is a piece of dataset text stored in a vector collection.
type Chunk struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
	Score      float64   `json:"score,omitempty"`
}

// Answer is the response to a Query.
type Answer struct {
	Question  string      `json:"question"`
	Text      string      `json:"answer"`
	Source    Source      `json:"source"`
	Model     string      `json:"model,omitempty"`
	Context   []Chunk     `json:"context,omitempty"`
	Chart     *chart.Spec `json:"chart,omitempty"`
	Warning   string      `json:"warning,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Report is the generated insights for a whole dataset.
type Report struct {
	Text        string        `json:"insights"`
	Source      Source        `json:"source"`
	Highlights  []string      `json:"highlights,omitempty"`
	Recommended []*chart.Spec `json:"recommended_charts,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ColumnAnalysis is the generated analysis of one column.
type ColumnAnalysis struct {
	Column  string             `json:"column"`
	Type    string             `json:"type"`
	Summary map[string]float64 `json:"summary,omitempty"`
	Text    string             `json:"analysis"`
	Source  Source             `json:"source"`
}

// ChartSuggestion is a chart the model proposes alongside an answer.
type ChartSuggestion struct {
	Type        string `json:"type"`
	X           string `json:"x"`
	Y           string `json:"y,omitempty"`
	Aggregation string `json:"aggregation,omitempty"`
	Title       string `json:"title,omitempty"`
}

// ModelReply is the JSON object the model is asked to return.
type ModelReply struct {
	Answer string           `json:"answer"`
	Chart  *ChartSuggestion `json:"chart,omitempty"`
}
