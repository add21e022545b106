// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"

	"github.com/jonathan/profile-importer/internal/prompts"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "ExtractedProfile")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
	Notes       []string      // Extra rules appended after the output structure
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	for _, note := range schema.Notes {
		sb.WriteString("- ")
		sb.WriteString(note)
		sb.WriteString("\n")
	}
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// ProfileSchema returns the extraction schema for a person's profile page.
// avatar and url are filled in by the importer, never by the model.
func ProfileSchema() ExtractionSchema {
	prompt := prompts.MustProfile()
	return ExtractionSchema{
		Name:        "ExtractedProfile",
		Description: prompt.Description,
		Fields: []SchemaField{
			{Name: "name", Type: `"string" | null`, Description: "人名"},
			{Name: "phone", Type: `"string" | null`, Description: "电话号码"},
			{Name: "email", Type: `"string" | null`, Description: "电子邮件"},
			{Name: "company", Type: `"string" | null`, Description: "公司名称"},
			{Name: "position", Type: `"string" | null`, Description: "职位"},
			{Name: "degree", Type: `"string" | null`, Description: "最高学历（如：博士、硕士、学士等）"},
			{Name: "school", Type: `"string" | null`, Description: "毕业院校"},
			{Name: "graduationTime", Type: `"string" | null`, Description: "毕业时间，格式见下方规则"},
			{Name: "location", Type: `"string" | null`, Description: "所在地，只需要城市名称"},
			{Name: "url", Type: "null", Description: "页面链接，由系统自动填充，请保持为null"},
		},
		Notes: prompt.Notes,
	}
}
