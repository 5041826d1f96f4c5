package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SystemPromptConfig mirrors configs/system_prompt.yaml.
type SystemPromptConfig struct {
	System struct {
		Role     string `yaml:"role"`
		Language string `yaml:"language"`
	} `yaml:"system"`

	Company struct {
		Name     string   `yaml:"name"`
		Market   string   `yaml:"market"`
		Products []string `yaml:"products"`
	} `yaml:"company"`

	Guidelines  []string `yaml:"guidelines"`
	Constraints []string `yaml:"constraints"`

	Tone struct {
		Style       string `yaml:"style"`
		Personality string `yaml:"personality"`
	} `yaml:"tone"`
}

// defaultSystemPrompt is used when the YAML file is absent, so the
// server starts with a sensible persona even in a bare checkout.
const defaultSystemPrompt = "Eres el co-piloto de ventas de Solventum para hospitales chilenos. " +
	"Responde en español, de forma breve y profesional, usando solo los datos de predicciones entregados en el contexto."

// LoadSystemPrompt reads the prompt configuration from path
// (configs/system_prompt.yaml when empty).
func LoadSystemPrompt(path string) (*SystemPromptConfig, error) {
	if path == "" {
		path = "configs/system_prompt.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading system prompt config: %w", err)
	}
	var cfg SystemPromptConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing system prompt config: %w", err)
	}
	return &cfg, nil
}

// BuildSystemPrompt renders the configuration into the system prompt
// sent with every chat request.
func (c *SystemPromptConfig) BuildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Eres %s.\n", c.System.Role))
	if c.System.Language != "" {
		sb.WriteString(fmt.Sprintf("Responde siempre en %s.\n", c.System.Language))
	}
	sb.WriteString("\n")

	if c.Company.Name != "" {
		sb.WriteString("## Empresa\n")
		sb.WriteString(fmt.Sprintf("- Nombre: %s\n", c.Company.Name))
		if c.Company.Market != "" {
			sb.WriteString(fmt.Sprintf("- Mercado: %s\n", c.Company.Market))
		}
		if len(c.Company.Products) > 0 {
			sb.WriteString(fmt.Sprintf("- Productos: %s\n", strings.Join(c.Company.Products, ", ")))
		}
		sb.WriteString("\n")
	}

	if len(c.Guidelines) > 0 {
		sb.WriteString("## Pautas de respuesta\n")
		for i, g := range c.Guidelines {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, g))
		}
		sb.WriteString("\n")
	}

	if len(c.Constraints) > 0 {
		sb.WriteString("## Restricciones\n")
		for _, constraint := range c.Constraints {
			sb.WriteString(fmt.Sprintf("- %s\n", constraint))
		}
		sb.WriteString("\n")
	}

	if c.Tone.Style != "" || c.Tone.Personality != "" {
		sb.WriteString("## Tono\n")
		if c.Tone.Style != "" {
			sb.WriteString(fmt.Sprintf("- Estilo: %s\n", c.Tone.Style))
		}
		if c.Tone.Personality != "" {
			sb.WriteString(fmt.Sprintf("- Personalidad: %s\n", c.Tone.Personality))
		}
	}

	return sb.String()
}

// ResolveSystemPrompt loads the YAML prompt and falls back to the
// built-in default when the file is missing or malformed.
func ResolveSystemPrompt(path string) string {
	cfg, err := LoadSystemPrompt(path)
	if err != nil {
		return defaultSystemPrompt
	}
	return cfg.BuildSystemPrompt()
}
