package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"excelinsights/adapters/llm"
	"excelinsights/domain/chart"
	"excelinsights/domain/core"
	"excelinsights/domain/insight"
	apperrors "excelinsights/internal/errors"
	"excelinsights/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, mock *llm.MockLLMClient, cache *mapCache) (*Engine, Target) {
	t.Helper()
	ix, retriever, _ := newTestIndex(t, 60)

	var client ports.LLMClient
	if mock != nil {
		client = mock
	}
	var answers ports.AnswerCache
	if cache != nil {
		answers = cache
	}
	engine := NewEngine(client, ix, retriever, answers, nil, Options{TopK: 2}, nil)

	target := Target{Collection: "s1", Dataset: salesData()}
	_, err := engine.Index(context.Background(), target)
	require.NoError(t, err)
	return engine, target
}

func TestAnswerWithoutModelUsesHeuristics(t *testing.T) {
	engine, target := newTestEngine(t, nil, nil)
	assert.False(t, engine.HasModel())

	answer, err := engine.Answer(context.Background(), target, "  What is the total Sale Amount?  ")
	require.NoError(t, err)
	assert.Equal(t, "The total for Sale Amount is 530.00", answer.Text)
	assert.Equal(t, insight.SourceHeuristic, answer.Source)
	assert.Equal(t, "What is the total Sale Amount?", answer.Question)
	assert.Empty(t, answer.Warning)
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	engine, target := newTestEngine(t, nil, nil)
	_, err := engine.Answer(context.Background(), target, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyQuestion)
}

func TestAnswerWithModelBuildsSuggestedChart(t *testing.T) {
	client := &llm.MockLLMClient{
		ModelID:  "test-model",
		Response: `{"answer": "West has the highest sales.", "chart": {"type": "bar", "x": "Region", "y": "Sale Amount", "aggregation": "sum"}}`,
	}
	engine, target := newTestEngine(t, client, nil)

	answer, err := engine.Answer(context.Background(), target, "Which region sells most?")
	require.NoError(t, err)
	assert.Equal(t, "West has the highest sales.", answer.Text)
	assert.Equal(t, insight.SourceLLM, answer.Source)
	assert.Equal(t, "test-model", answer.Model)
	assert.NotEmpty(t, answer.Context)
	require.NotNil(t, answer.Chart)
	assert.Equal(t, chart.Bar, answer.Chart.Type)
	assert.Equal(t, "West", answer.Chart.Series[0].Data[0].Label)

	require.Len(t, client.Requests, 1)
	req := client.Requests[0]
	assert.NotEmpty(t, req.System)
	assert.Contains(t, req.Prompt, "Which region sells most?")
	assert.Contains(t, req.Prompt, "Region, Manager, Units, Sale Amount")
}

func TestAnswerKeepsTextWhenChartCannotBeBuilt(t *testing.T) {
	client := &llm.MockLLMClient{Response: `{"answer": "See the chart.", "chart": {"type": "bar", "x": "Country", "y": "Sale Amount"}}`}
	engine, target := newTestEngine(t, client, nil)

	answer, err := engine.Answer(context.Background(), target, "sales by country")
	require.NoError(t, err)
	assert.Equal(t, "See the chart.", answer.Text)
	assert.Nil(t, answer.Chart)
	assert.Contains(t, answer.Warning, "could not be built")
}

func TestAnswerFallsBackWhenModelFails(t *testing.T) {
	cache := newMapCache()
	client := &llm.MockLLMClient{Error: errors.New("rate limited")}
	engine, target := newTestEngine(t, client, cache)

	answer, err := engine.Answer(context.Background(), target, "count")
	require.NoError(t, err)
	assert.Equal(t, "The total number of records is 5", answer.Text)
	assert.Equal(t, insight.SourceHeuristic, answer.Source)
	assert.NotEmpty(t, answer.Warning)
	assert.Empty(t, cache.answers, "answers with warnings are not cached")
}

func TestModelFailureIsExternalServiceError(t *testing.T) {
	cause := errors.New("rate limited")
	engine, _ := newTestEngine(t, &llm.MockLLMClient{Error: cause, ModelID: "gpt-4o-mini"}, nil)

	_, err := engine.complete(context.Background(), "answer", "prompt")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeExternalService, apperrors.GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "answer completion")
}

func TestAnswerFallsBackOnEmptyCompletion(t *testing.T) {
	client := &llm.MockLLMClient{Response: "   "}
	engine, target := newTestEngine(t, client, nil)

	answer, err := engine.Answer(context.Background(), target, "which columns")
	require.NoError(t, err)
	assert.Equal(t, insight.SourceHeuristic, answer.Source)
	assert.True(t, strings.HasPrefix(answer.Text, "The columns in the dataset are:"))
}

func TestAnswerServedFromCache(t *testing.T) {
	cache := newMapCache()
	client := &llm.MockLLMClient{Response: `{"answer": "Five rows.", "chart": null}`}
	engine, target := newTestEngine(t, client, cache)

	first, err := engine.Answer(context.Background(), target, "How many rows?")
	require.NoError(t, err)
	assert.Equal(t, insight.SourceLLM, first.Source)

	second, err := engine.Answer(context.Background(), target, "how many ROWS?")
	require.NoError(t, err)
	assert.Equal(t, insight.SourceCache, second.Source)
	assert.Equal(t, "Five rows.", second.Text)
	assert.Len(t, client.Requests, 1)
}

func TestGenerateInsightsWithoutModel(t *testing.T) {
	engine, target := newTestEngine(t, nil, nil)

	report, err := engine.GenerateInsights(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, insight.SourceHeuristic, report.Source)
	assert.True(t, strings.HasPrefix(report.Text, "Key insights:\n- The dataset has 5 rows and 4 columns."))
	assert.NotEmpty(t, report.Highlights)
	assert.NotEmpty(t, report.Recommended)
}

func TestGenerateInsightsWithModel(t *testing.T) {
	client := &llm.MockLLMClient{Response: "1. Sales concentrate in the West."}
	engine, target := newTestEngine(t, client, nil)

	report, err := engine.GenerateInsights(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, insight.SourceLLM, report.Source)
	assert.Equal(t, "1. Sales concentrate in the West.", report.Text)
}

func TestColumnAnalysis(t *testing.T) {
	engine, target := newTestEngine(t, nil, nil)

	analysis, err := engine.ColumnAnalysis(context.Background(), target, "Units")
	require.NoError(t, err)
	assert.Equal(t, insight.SourceHeuristic, analysis.Source)
	assert.Equal(t, 5.0, analysis.Summary["count"])
	assert.InDelta(t, 4.4, analysis.Summary["mean"], 1e-9)
	assert.Contains(t, analysis.Text, "There are no missing values.")

	region, err := engine.ColumnAnalysis(context.Background(), target, "Region")
	require.NoError(t, err)
	assert.Contains(t, region.Text, "3 distinct values")

	_, err = engine.ColumnAnalysis(context.Background(), target, "Profit")
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
}

func TestColumnAnalysisWithModel(t *testing.T) {
	client := &llm.MockLLMClient{Response: "Units are small and evenly spread."}
	engine, target := newTestEngine(t, client, nil)

	analysis, err := engine.ColumnAnalysis(context.Background(), target, "Units")
	require.NoError(t, err)
	assert.Equal(t, insight.SourceLLM, analysis.Source)
	require.Len(t, client.Requests, 1)
	assert.Contains(t, client.Requests[0].Prompt, "Units")
	assert.Contains(t, client.Requests[0].Prompt, "mean")
}
