// Package parser converts uploaded documents into plain text.
//
// Each recognized Format maps to a pure ExtractFunc over the raw file bytes.
// Unknown formats are rejected before any content is read.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ExtractFunc turns the raw bytes of one document into plain text.
type ExtractFunc func(ctx context.Context, data []byte) (string, error)

// Converter converts legacy binary documents into plain text.
type Converter interface {
	Convert(ctx context.Context, data []byte) (string, error)
}

// Config is the configuration for a Parser.
type Config struct {
	// Converter handles FormatDOC. Defaults to a CommandConverter running antiword.
	Converter Converter

	Logger *slog.Logger
}

// Parser dispatches documents to the extractor for their format.
type Parser struct {
	extractors map[Format]ExtractFunc
	logger     *slog.Logger
}

// New creates a Parser with an extractor for every recognized format.
func New(c *Config) *Parser {
	if c == nil {
		c = &Config{}
	}

	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	if c.Converter == nil {
		c.Converter = NewCommandConverter(DefaultDocConverter)
	}

	return &Parser{
		extractors: map[Format]ExtractFunc{
			FormatPDF:  extractPDF,
			FormatDOCX: extractDOCX,
			FormatDOC:  c.Converter.Convert,
			FormatTXT:  extractTXT,
		},
		logger: c.Logger,
	}
}

// Parse reads the file at path and extracts its text.
// The format is checked before the file is opened.
func (p *Parser) Parse(ctx context.Context, path string, format Format) (string, error) {
	if _, ok := p.extractors[format]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", newParseError(format, err)
	}

	return p.ParseBytes(ctx, data, format)
}

// ParseBytes extracts text from an in-memory document.
// Whitespace-only output is a parse failure; no partial text is ever returned.
func (p *Parser) ParseBytes(ctx context.Context, data []byte, format Format) (string, error) {
	extract, ok := p.extractors[format]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	text, err := extract(ctx, data)
	if err != nil {
		return "", newParseError(format, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", newParseError(format, ErrEmptyText)
	}

	p.logger.Debug("parsed document",
		"format", format.String(),
		"bytes", len(data),
		"characters", len(text),
	)

	return text, nil
}
