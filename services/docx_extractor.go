package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/JLAD75/fileManagerRAG/models"
)

// Heading markers written into extracted DOCX text. Levels 1-3 get their own
// marker; levels 4-6 share the lowest tier. The chunker's word-document
// strategy parses these back into a section tree.
var headingMarkers = [...]string{"#", "##", "###", "####"}

// HeadingMarker returns the marker for a 1-based heading level.
func HeadingMarker(level int) string {
	if level < 1 {
		level = 1
	}
	if level > len(headingMarkers) {
		level = len(headingMarkers)
	}
	return headingMarkers[level-1]
}

var (
	collapseNewlines  = regexp.MustCompile(`\n{3,}`)
	collapseHorizontal = regexp.MustCompile(`[ \t]+`)
)

// extractDocx converts a DOCX file into plain text with heading markers,
// list bullets and table row delimiters. The word/document.xml part is
// walked token by token so paragraphs and tables keep their order.
func (s *ExtractorService) extractDocx(raw []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	var docXML []byte
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("%w: missing word/document.xml", models.ErrExtraction)
	}

	markup, err := convertDocumentXML(docXML)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	return normalizeMarkup(markup), nil
}

// normalizeMarkup decodes HTML entities, collapses long newline runs to at
// most two, and collapses horizontal whitespace runs to one space. Leading
// heading/bullet markers survive because they are not whitespace.
func normalizeMarkup(markup string) string {
	text := html.UnescapeString(markup)
	text = collapseNewlines.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(collapseHorizontal.ReplaceAllString(line, " "), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// convertDocumentXML walks the body of word/document.xml and emits one
// markup line per paragraph and one per table row.
func convertDocumentXML(docXML []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(docXML))
	var sb strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "p":
			line, err := parseParagraph(dec, se)
			if err != nil {
				return "", err
			}
			sb.WriteString(line)
			sb.WriteString("\n\n")
		case "tbl":
			rows, err := parseTable(dec, se)
			if err != nil {
				return "", err
			}
			for _, row := range rows {
				sb.WriteString(row)
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// paragraphXML mirrors the subset of WordprocessingML the converter needs.
type paragraphXML struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
		Numbering *struct{} `xml:"numPr"`
	} `xml:"pPr"`
	Runs []runXML `xml:"r"`
}

type runXML struct {
	Props struct {
		Bold   *struct{} `xml:"b"`
		Italic *struct{} `xml:"i"`
	} `xml:"rPr"`
	Texts []string `xml:"t"`
}

// parseParagraph decodes a w:p element into a single markup line.
func parseParagraph(dec *xml.Decoder, start xml.StartElement) (string, error) {
	var p paragraphXML
	if err := dec.DecodeElement(&p, &start); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, run := range p.Runs {
		content := strings.Join(run.Texts, "")
		if content == "" {
			continue
		}
		switch {
		case run.Props.Bold != nil:
			content = "**" + content + "**"
		case run.Props.Italic != nil:
			content = "*" + content + "*"
		}
		text.WriteString(content)
	}

	line := text.String()
	if level := headingLevel(p.Props.Style.Val); level > 0 {
		return HeadingMarker(level) + " " + line, nil
	}
	if p.Props.Numbering != nil {
		return "- " + line, nil
	}
	return line, nil
}

// parseTable decodes a w:tbl element into pipe-delimited row lines.
func parseTable(dec *xml.Decoder, start xml.StartElement) ([]string, error) {
	var tbl struct {
		Rows []struct {
			Cells []struct {
				Paragraphs []paragraphXML `xml:"p"`
			} `xml:"tc"`
		} `xml:"tr"`
	}
	if err := dec.DecodeElement(&tbl, &start); err != nil {
		return nil, err
	}

	rows := make([]string, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			var parts []string
			for _, p := range cell.Paragraphs {
				var cellText strings.Builder
				for _, run := range p.Runs {
					cellText.WriteString(strings.Join(run.Texts, ""))
				}
				if t := strings.TrimSpace(cellText.String()); t != "" {
					parts = append(parts, t)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		rows = append(rows, "| "+strings.Join(cells, " | ")+" |")
	}
	return rows, nil
}

// headingLevel extracts the 1-6 level from a paragraph style id such as
// "Heading2" (or the French template's "Titre2"). Returns 0 for body styles.
func headingLevel(styleID string) int {
	style := strings.ToLower(styleID)
	for _, prefix := range []string{"heading", "titre"} {
		if rest, ok := strings.CutPrefix(style, prefix); ok && len(rest) == 1 {
			if rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
