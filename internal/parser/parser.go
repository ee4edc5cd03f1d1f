// Package parser turns on-disk standards files into normalized rule drafts.
// The format is chosen by extension: .json is a strict object literal, .yaml
// and .yml are the relaxed key:value format, and .md carries a front-matter
// header with the document body used as a description fallback. Any other
// extension decodes to nothing and the file is invalid.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	stderrors "github.com/menoncello/coding-standard-sub000/internal/errors"
	"github.com/menoncello/coding-standard-sub000/internal/types"
)

// frontMatterDelimiter bounds the header block of a .md standards file.
const frontMatterDelimiter = "---"

// Format identifies how a standards file is decoded.
type Format int

const (
	FormatUnknown Format = iota
	FormatStrict
	FormatRelaxed
	FormatFrontMatter
)

// String returns the string representation of the Format.
func (f Format) String() string {
	switch f {
	case FormatStrict:
		return "strict"
	case FormatRelaxed:
		return "relaxed"
	case FormatFrontMatter:
		return "front-matter"
	default:
		return "unknown"
	}
}

// FormatForPath resolves the decoding format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatStrict
	case ".yaml", ".yml":
		return FormatRelaxed
	case ".md":
		return FormatFrontMatter
	default:
		return FormatUnknown
	}
}

// Extensions lists every extension the parser understands.
func Extensions() []string {
	return []string{".json", ".yaml", ".yml", ".md"}
}

// ruleDocument is the raw decoded shape of a standards file, before defaults.
type ruleDocument struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Severity    string   `json:"severity" yaml:"severity"`
	Pattern     string   `json:"pattern" yaml:"pattern"`
	Message     string   `json:"message" yaml:"message"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags" yaml:"tags"`
	Extends     []string `json:"extends" yaml:"extends"`
	Enabled     *bool    `json:"enabled" yaml:"enabled"`
}

// Parser decodes and normalizes standards files.
type Parser struct{}

// New creates a parser.
func New() *Parser {
	return &Parser{}
}

// ParseFile reads path and returns the normalized rule draft it defines.
func (p *Parser) ParseFile(path string) (types.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Rule{}, stderrors.ErrFileNotFound(path, err)
		}
		return types.Rule{}, stderrors.NewIOError(stderrors.ErrCodeParseFailed, "reading file", err).WithFile(path)
	}
	return p.Parse(path, data)
}

// Parse decodes data according to the format derived from path and fills in
// defaults for missing fields.
func (p *Parser) Parse(path string, data []byte) (types.Rule, error) {
	var doc ruleDocument
	var err error

	switch FormatForPath(path) {
	case FormatStrict:
		err = decodeStrict(data, &doc)
	case FormatRelaxed:
		err = decodeRelaxed(data, &doc)
	case FormatFrontMatter:
		err = decodeFrontMatter(data, &doc)
	default:
		return types.Rule{}, stderrors.NewValidationError(
			stderrors.ErrCodeUnknownFormat,
			fmt.Sprintf("unsupported standards file extension %q", filepath.Ext(path)),
		).WithFile(path)
	}
	if err != nil {
		return types.Rule{}, stderrors.NewValidationError(
			stderrors.ErrCodeParseFailed, err.Error(),
		).WithFile(path)
	}

	return normalize(path, doc), nil
}

// decodeStrict parses the strict object-literal format. Unknown fields are
// rejected so a typo never silently drops configuration.
func decodeStrict(data []byte, doc *ruleDocument) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(doc); err != nil {
		return fmt.Errorf("strict format: %w", err)
	}
	return nil
}

// decodeRelaxed parses the line-oriented key:value format. yaml.v3 covers the
// whole relaxed grammar: quoted strings, booleans, numbers, and block scalars.
func decodeRelaxed(data []byte, doc *ruleDocument) error {
	if err := yaml.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("relaxed format: %w", err)
	}
	return nil
}

// decodeFrontMatter extracts the leading delimiter-bounded header, parses it
// with the relaxed rules, and keeps the remaining body as a description
// fallback.
func decodeFrontMatter(data []byte, doc *ruleDocument) error {
	header, body, err := splitFrontMatter(data)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(header, doc); err != nil {
		return fmt.Errorf("front matter: %w", err)
	}
	if doc.Description == "" {
		doc.Description = strings.TrimSpace(string(body))
	}
	return nil
}

// splitFrontMatter returns the header block between the first two delimiter
// lines and everything after the closing delimiter.
func splitFrontMatter(data []byte) (header, body []byte, err error) {
	text := string(data)
	trimmed := strings.TrimLeft(text, "\r\n \t")
	if !strings.HasPrefix(trimmed, frontMatterDelimiter) {
		return nil, nil, fmt.Errorf("front matter: missing opening %q delimiter", frontMatterDelimiter)
	}

	rest := trimmed[len(frontMatterDelimiter):]
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	idx := strings.Index(rest, "\n"+frontMatterDelimiter)
	if idx < 0 {
		return nil, nil, fmt.Errorf("front matter: missing closing %q delimiter", frontMatterDelimiter)
	}

	header = []byte(rest[:idx])
	after := rest[idx+1+len(frontMatterDelimiter):]
	if nl := strings.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = ""
	}
	return header, []byte(after), nil
}

// normalize applies the default-filling rules for missing fields.
func normalize(path string, doc ruleDocument) types.Rule {
	now := time.Now()

	rule := types.Rule{
		ID:          doc.ID,
		Name:        doc.Name,
		Category:    doc.Category,
		Severity:    doc.Severity,
		Pattern:     doc.Pattern,
		Message:     doc.Message,
		Description: doc.Description,
		Tags:        doc.Tags,
		Extends:     doc.Extends,
		Enabled:     true,
		SourcePath:  path,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if rule.ID == "" {
		rule.ID = RuleIDForPath(path)
	}
	if rule.Name == "" {
		rule.Name = rule.ID
	}
	if rule.Category == "" {
		rule.Category = "general"
	}
	if rule.Severity == "" {
		rule.Severity = types.SeverityWarning
	}
	if doc.Enabled != nil {
		rule.Enabled = *doc.Enabled
	}
	return rule
}

// RuleIDForPath derives the registry id for a standards file: the base name
// without extension, lowercased, with spaces and underscores as hyphens.
// Delete events carry no content, so the id must be derivable from the path
// alone.
func RuleIDForPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(base)
	base = strings.ReplaceAll(base, " ", "-")
	base = strings.ReplaceAll(base, "_", "-")
	return base
}
