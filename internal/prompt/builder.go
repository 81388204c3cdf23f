package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

type TemplateName string

const (
	TemplateClientSystem  TemplateName = "client_system.yaml"
	TemplateCashierSystem TemplateName = "cashier_system.yaml"
	TemplateSingleShot    TemplateName = "single_shot.yaml"
	TemplateBatch         TemplateName = "batch.yaml"
	TemplateExtractOrder  TemplateName = "extract_order.yaml"
)

// Prompt is a rendered template. Either part may be empty.
type Prompt struct {
	System string
	User   string
}

type templateFile struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type compiledTemplate struct {
	system *template.Template
	user   *template.Template
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

type PromptBuilder struct {
	mu        sync.RWMutex
	templates map[TemplateName]*compiledTemplate
}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		templates: make(map[TemplateName]*compiledTemplate),
	}
}

func (pb *PromptBuilder) Render(name TemplateName, data any) (Prompt, error) {
	tmpl, err := pb.getTemplate(name)
	if err != nil {
		return Prompt{}, err
	}

	var out Prompt
	if out.System, err = execute(tmpl.system, data); err != nil {
		return Prompt{}, fmt.Errorf("render prompt %s (system): %w", name, err)
	}
	if out.User, err = execute(tmpl.user, data); err != nil {
		return Prompt{}, fmt.Errorf("render prompt %s (user): %w", name, err)
	}
	return out, nil
}

func execute(tmpl *template.Template, data any) (string, error) {
	if tmpl == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func (pb *PromptBuilder) getTemplate(name TemplateName) (*compiledTemplate, error) {
	pb.mu.RLock()
	if tmpl, ok := pb.templates[name]; ok {
		pb.mu.RUnlock()
		return tmpl, nil
	}
	pb.mu.RUnlock()

	filename := filepath.ToSlash(filepath.Join("templates", string(name)))
	content, err := templateFS.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("load prompt template %s: %w", name, err)
	}

	var file templateFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("decode prompt template %s: %w", name, err)
	}

	compiled := &compiledTemplate{}
	if file.System != "" {
		if compiled.system, err = template.New(string(name) + ":system").Funcs(funcs).Parse(file.System); err != nil {
			return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
		}
	}
	if file.User != "" {
		if compiled.user, err = template.New(string(name) + ":user").Funcs(funcs).Parse(file.User); err != nil {
			return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
		}
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.templates[name] = compiled

	return compiled, nil
}
