package chunking

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/models"
)

var (
	controlChars       = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	markupTags         = regexp.MustCompile(`<[^>]*>`)
	runsOfSpaces       = regexp.MustCompile(`[ \t]+`)
	runsOfNewlines     = regexp.MustCompile(`\n{3,}`)
	missingSentenceGap = regexp.MustCompile(`([a-z])\.([A-Z])`)
)

// Preprocess normalizes raw document text per source format before
// chunking. PDF extractions carry form feeds, control characters and glued
// sentences; EPUB carries markup; TXT/DOCX only need whitespace cleanup.
func Preprocess(content string, docType models.DocumentType, preserveChapters bool) (string, error) {
	switch docType {
	case models.DocumentPDF:
		return preprocessPDF(content), nil
	case models.DocumentEPUB:
		return preprocessEPUB(content), nil
	case models.DocumentTXT, models.DocumentDOCX:
		return normalizeWhitespace(content), nil
	default:
		return "", fmt.Errorf("unsupported document type %q", docType)
	}
}

func preprocessPDF(content string) string {
	// Page breaks become paragraph breaks.
	s := strings.ReplaceAll(content, "\f", "\n\n")
	s = controlChars.ReplaceAllString(s, "")
	// PDF text extraction often drops the space after a period.
	s = missingSentenceGap.ReplaceAllString(s, "$1. $2")
	return normalizeWhitespace(s)
}

func preprocessEPUB(content string) string {
	s := markupTags.ReplaceAllString(content, " ")
	s = html.UnescapeString(s)
	return normalizeWhitespace(s)
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = runsOfSpaces.ReplaceAllString(s, " ")
	s = runsOfNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
