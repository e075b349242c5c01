package paper

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"papereval/internal/util"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
)

// ExtractText returns cleaned plain text for the document at path. PDFs are
// read with the native PDF reader first and fall back to docconv, which also
// handles the other formats it supports.
func ExtractText(path string) (string, error) {
	var text string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		var buf []byte
		buf, err = os.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("read text file: %w", err)
		}
		text = string(buf)
	case ".pdf":
		text, err = readPDF(path)
		if err != nil || strings.TrimSpace(text) == "" {
			if alt, convErr := convert(path); convErr == nil {
				text, err = alt, nil
			} else if err == nil {
				err = convErr
			}
		}
	default:
		text, err = convert(path)
	}
	if err != nil {
		return "", err
	}
	text = Clean(text)
	if text == "" {
		return "", util.ErrNoExtractableText
	}
	return text, nil
}

func readPDF(path string) (string, error) {
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

func convert(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("convert document: %w", err)
	}
	return res.Body, nil
}
