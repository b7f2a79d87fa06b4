// Package promptlib loads and renders the text/template prompts embedded in
// the binary, keyed by task and optionally overridden per model provider.
package promptlib

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

type ModelProvider string
type PromptKey string

const (
	DefaultProvider ModelProvider = "default"

	FileDocPrompt    PromptKey = "file_doc"
	FolderDocPrompt  PromptKey = "folder_doc"
	ChatThoughtPrompt PromptKey = "chat_thought"
	ChatFallbackPrompt PromptKey = "chat_fallback"
)

// Library holds one parsed template per (key, provider) pair.
type Library struct {
	prompts map[PromptKey]map[ModelProvider]*template.Template
}

func New() (*Library, error) {
	lib := &Library{prompts: make(map[PromptKey]map[ModelProvider]*template.Template)}

	files, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		fileName := file.Name()
		baseName := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		lastUnderscore := strings.LastIndex(baseName, "_")
		if lastUnderscore == -1 || lastUnderscore == 0 || lastUnderscore == len(baseName)-1 {
			return nil, fmt.Errorf("invalid prompt filename format: %s (expected 'key_provider.prompt')", fileName)
		}

		key := PromptKey(baseName[:lastUnderscore])
		provider := ModelProvider(baseName[lastUnderscore+1:])

		content, err := promptFiles.ReadFile("prompts/" + fileName)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded prompt file %s: %w", fileName, err)
		}

		if err := lib.register(key, provider, string(content)); err != nil {
			return nil, fmt.Errorf("failed to register prompt from file %s: %w", fileName, err)
		}
	}

	return lib, nil
}

func (lib *Library) register(key PromptKey, provider ModelProvider, content string) error {
	tmpl, err := template.New(string(key) + "_" + string(provider)).Parse(content)
	if err != nil {
		return fmt.Errorf("could not parse template: %w", err)
	}

	if _, ok := lib.prompts[key]; !ok {
		lib.prompts[key] = make(map[ModelProvider]*template.Template)
	}
	lib.prompts[key][provider] = tmpl
	return nil
}

func (lib *Library) Get(key PromptKey, provider ModelProvider) (*template.Template, error) {
	taskPrompts, ok := lib.prompts[key]
	if !ok {
		return nil, fmt.Errorf("no prompts found for key %q", key)
	}
	if tmpl, ok := taskPrompts[provider]; ok {
		return tmpl, nil
	}
	if tmpl, ok := taskPrompts[DefaultProvider]; ok {
		return tmpl, nil
	}
	return nil, fmt.Errorf("no template for key %q and provider %q, and no default was available", key, provider)
}

func (lib *Library) Render(key PromptKey, provider ModelProvider, data any) (string, error) {
	tmpl, err := lib.Get(key, provider)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", key, err)
	}
	return buf.String(), nil
}
