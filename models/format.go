package models

import (
	"path/filepath"
	"strings"
)

// SourceFormat is the capability tag attached to an uploaded file. It is
// determined once, at upload time, and threaded through extraction and
// chunking so no later stage has to re-sniff the filename.
type SourceFormat string

const (
	FormatUnknown      SourceFormat = ""
	FormatPDF          SourceFormat = "pdf"
	FormatSpreadsheet  SourceFormat = "spreadsheet"
	FormatCSV          SourceFormat = "csv"
	FormatWordDocument SourceFormat = "word"
	FormatPlainText    SourceFormat = "text"
)

// DetectFormat maps a file name to its source format by extension.
// FormatUnknown is returned for anything the pipeline cannot extract.
func DetectFormat(name string) SourceFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".xlsx", ".xls":
		return FormatSpreadsheet
	case ".csv":
		return FormatCSV
	case ".docx":
		return FormatWordDocument
	case ".txt", ".md":
		return FormatPlainText
	default:
		return FormatUnknown
	}
}

// AllowedMIMETypes lists the upload content types accepted at request time.
var AllowedMIMETypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":   true,
	"application/vnd.ms-excel":                                            true,
	"text/csv":                                                            true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain":    true,
	"text/markdown": true,
}
