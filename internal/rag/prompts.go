package rag

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// Prompt names
const (
	PromptSystem         = "system"
	PromptAnswer         = "answer"
	PromptInsights       = "insights"
	PromptColumnAnalysis = "column_analysis"
)

// PromptManager loads prompt templates, from a directory when one is set
// and otherwise from the templates built into the binary.
type PromptManager struct {
	PromptsDir string
}

// NewPromptManager creates a prompt manager. An empty dir uses the built-in
// templates.
func NewPromptManager(promptsDir string) *PromptManager {
	return &PromptManager{PromptsDir: promptsDir}
}

// LoadPrompt loads a prompt template by name
func (pm *PromptManager) LoadPrompt(name string) (string, error) {
	var (
		content []byte
		err     error
	)
	if pm.PromptsDir != "" {
		content, err = os.ReadFile(filepath.Join(pm.PromptsDir, name+".txt"))
	} else {
		content, err = fs.ReadFile(embeddedPrompts, "prompts/"+name+".txt")
	}
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt template not found: %s", name)
		}
		return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// RenderPrompt replaces {PLACEHOLDER} with values
func (pm *PromptManager) RenderPrompt(name string, replacements map[string]string) (string, error) {
	template, err := pm.LoadPrompt(name)
	if err != nil {
		return "", err
	}

	// one pass, so placeholders inside substituted values stay literal
	pairs := make([]string, 0, 2*len(replacements))
	for placeholder, value := range replacements {
		pairs = append(pairs, "{"+placeholder+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template), nil
}
