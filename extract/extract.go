// Package extract pulls plain text out of uploaded documents.
package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/flarexio/docrag/fault"
)

// Extract returns the text of the document at path. PDF and DOCX files are
// parsed; anything else is read as UTF-8 text with invalid bytes dropped.
func Extract(path string) (string, error) {
	var (
		text string
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		text, err = extractPDF(path)

	case ".docx":
		text, err = extractDOCX(path)

	case ".doc":
		err = fmt.Errorf("legacy word format %s is not supported", ext)

	default:
		text, err = extractText(path)
	}

	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", fault.ErrExtraction, filepath.Base(path), err)
	}

	return text, nil
}

func extractPDF(path string) (text string, err error) {
	// the pdf reader panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}

	return buf.String(), nil
}

func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document part: %w", err)
		}
		defer rc.Close()

		return paragraphs(rc)
	}

	return "", fmt.Errorf("docx has no word/document.xml")
}

// paragraphs walks a WordprocessingML body and joins its paragraphs with
// newlines.
func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		paras  []string
		cur    strings.Builder
		inText bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}

		if err != nil {
			return "", fmt.Errorf("parse document part: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paras = append(paras, cur.String())
				cur.Reset()
			}

		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}

	if cur.Len() > 0 {
		paras = append(paras, cur.String())
	}

	return strings.Join(paras, "\n"), nil
}

func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.ToValidUTF8(string(data), ""), nil
}
