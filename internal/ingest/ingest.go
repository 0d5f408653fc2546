// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest extracts plain text from documents attached to a chat.
//
// Supported types are plain text (.txt, .md), Word documents (.docx),
// and PDF (.pdf). Extraction dispatches on the file extension; an
// unrecognized extension yields an UnsupportedTypeError so the caller
// can tell the user rather than fail silently.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
)

// =============================================================================
// ERRORS
// =============================================================================

// UnsupportedTypeError reports a file extension ingest cannot handle.
type UnsupportedTypeError struct {
	Ext string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported document type %q (supported: .txt, .md, .docx, .pdf)", e.Ext)
}

// IsUnsupportedType checks whether err is an UnsupportedTypeError.
func IsUnsupportedType(err error) bool {
	var ute *UnsupportedTypeError
	return errors.As(err, &ute)
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is the extraction result for one file.
type Document struct {
	// Name is the base file name, used when quoting the document in
	// a chat message.
	Name string
	// Text is the extracted plain text.
	Text string
}

// =============================================================================
// EXTRACTION
// =============================================================================

// Extract reads the file at path and returns its plain text.
func Extract(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var text string
	var err error
	switch ext {
	case ".txt", ".md":
		text, err = extractPlain(path)
	case ".docx":
		text, err = extractDocx(path)
	case ".pdf":
		text, err = extractPDF(path)
	default:
		return nil, &UnsupportedTypeError{Ext: ext}
	}
	if err != nil {
		return nil, err
	}

	return &Document{
		Name: filepath.Base(path),
		Text: strings.TrimSpace(text),
	}, nil
}

func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}

func extractDocx(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch block := item.(type) {
		case *docx.Paragraph:
			sb.WriteString(block.String())
			sb.WriteString("\n")
		case *docx.Table:
			sb.WriteString(block.String())
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// extractPDF pulls text page by page. A page that fails to decode is
// skipped; the document is still useful without it.
func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// =============================================================================
// PROMPT FORMATTING
// =============================================================================

// AsPrompt wraps the document for inclusion in a chat message, labeled
// with the file name so the model can refer to it.
func (d *Document) AsPrompt(question string) string {
	var sb strings.Builder
	sb.WriteString("The following is the content of the document \"")
	sb.WriteString(d.Name)
	sb.WriteString("\":\n\n")
	sb.WriteString(d.Text)
	sb.WriteString("\n\n")
	if question != "" {
		sb.WriteString(question)
	} else {
		sb.WriteString("Please summarize this document.")
	}
	return sb.String()
}
