package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"github.com/xuri/excelize/v2"

	"github.com/JLAD75/fileManagerRAG/models"
)

// maxExtractChars bounds the amount of text kept from a single document so a
// pathological file cannot exhaust memory downstream.
const maxExtractChars = 1_000_000

func init() {
	// Load .env file from the current directory
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	if key := os.Getenv("UNIDOC_LICENSE_KEY"); key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			fmt.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.\n", err)
		}
	}
}

// ExtractorService converts raw file bytes into plain (or lightly marked up)
// text, dispatching on the source format determined at upload time.
type ExtractorService struct {
	logger *slog.Logger
}

// NewExtractorService creates an extractor.
func NewExtractorService(logger *slog.Logger) *ExtractorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractorService{logger: logger}
}

// Extract returns the text content of raw according to format.
// Unknown formats yield models.ErrUnsupportedFormat; parse failures of a
// recognized format yield an error wrapping models.ErrExtraction.
func (s *ExtractorService) Extract(raw []byte, format models.SourceFormat) (string, error) {
	switch format {
	case models.FormatPDF:
		return s.extractPDF(raw)
	case models.FormatSpreadsheet:
		return s.extractSpreadsheet(raw)
	case models.FormatCSV:
		return s.extractCSV(raw)
	case models.FormatWordDocument:
		return s.extractDocx(raw)
	case models.FormatPlainText:
		return s.extractPlainText(raw)
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, format)
	}
}

// extractPDF pulls the text of every page, bounded by maxExtractChars.
func (s *ExtractorService) extractPDF(raw []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n\n") // Add space between pages

		if sb.Len() >= maxExtractChars {
			s.logger.Warn("pdf text truncated at extraction ceiling",
				"pages_read", i, "total_pages", numPages, "ceiling", maxExtractChars)
			return truncateAtRune(sb.String(), maxExtractChars), nil
		}
	}
	return sb.String(), nil
}

// extractSpreadsheet renders each sheet as a header block, a header line and
// one "Header: value" line per data row. The chunker parses these markers
// back out to batch rows without losing the sheet context.
func (s *ExtractorService) extractSpreadsheet(raw []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	defer wb.Close()

	var sb strings.Builder
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		if len(rows) == 0 {
			sb.WriteString(SheetHeaderLine(sheet, 0, 0) + "\n")
			continue
		}

		headers := make([]string, len(rows[0]))
		for i, h := range rows[0] {
			h = strings.TrimSpace(h)
			if h == "" {
				h = fmt.Sprintf("Column%d", i+1)
			}
			headers[i] = h
		}
		dataRows := rows[1:]

		sb.WriteString(SheetHeaderLine(sheet, len(dataRows), len(headers)) + "\n")
		sb.WriteString(ColumnHeaderLine(headers) + "\n")

		for _, row := range dataRows {
			var cells []string
			for i, header := range headers {
				if i >= len(row) {
					break
				}
				value := strings.TrimSpace(row[i])
				if value == "" {
					continue
				}
				cells = append(cells, header+": "+value)
			}
			if len(cells) == 0 {
				continue
			}
			sb.WriteString(strings.Join(cells, " | ") + "\n")
		}
	}
	return sb.String(), nil
}

// extractCSV serializes each non-empty row as comma-joined text.
func (s *ExtractorService) extractCSV(raw []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	var sb strings.Builder
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
		}
		if isEmptyRecord(record) {
			continue
		}
		sb.WriteString(strings.Join(record, ", "))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (s *ExtractorService) extractPlainText(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", models.ErrExtraction)
	}
	return string(raw), nil
}

// truncateAtRune cuts s to at most limit bytes without splitting a UTF-8
// rune at the boundary.
func truncateAtRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// SheetHeaderLine formats the per-sheet header block emitted by the
// spreadsheet extractor and re-parsed by the chunker.
func SheetHeaderLine(name string, rows, cols int) string {
	return fmt.Sprintf("=== Sheet: %s (%d rows, %d columns) ===", name, rows, cols)
}

// ColumnHeaderLine formats the explicit column-name line.
func ColumnHeaderLine(headers []string) string {
	return "Headers: " + strings.Join(headers, ", ")
}
