package parser

import "strings"

// Format is the recognized kind of an uploaded document.
type Format int

const (
	// FormatUnknown is any filename without a recognized extension.
	// It is never dispatched to an extractor.
	FormatUnknown Format = iota
	FormatPDF
	FormatDOCX
	FormatDOC
	FormatTXT
)

var extensions = []struct {
	suffix string
	format Format
}{
	{".pdf", FormatPDF},
	{".docx", FormatDOCX},
	{".doc", FormatDOC},
	{".txt", FormatTXT},
}

// DetectFormat maps a filename to its Format by a case-sensitive suffix match.
// "report.PDF" is FormatUnknown.
func DetectFormat(filename string) Format {
	for _, ext := range extensions {
		if strings.HasSuffix(filename, ext.suffix) {
			return ext.format
		}
	}
	return FormatUnknown
}

// Formats returns every recognized format in detection order.
func Formats() []Format {
	out := make([]Format, 0, len(extensions))
	for _, ext := range extensions {
		out = append(out, ext.format)
	}
	return out
}

// Extension returns the filename suffix for the format, or "" for FormatUnknown.
func (f Format) Extension() string {
	for _, ext := range extensions {
		if ext.format == f {
			return ext.suffix
		}
	}
	return ""
}

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	case FormatDOC:
		return "doc"
	case FormatTXT:
		return "txt"
	default:
		return "unknown"
	}
}

// Known reports whether the format has an extractor.
func (f Format) Known() bool {
	return f.Extension() != ""
}
