package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

var (
	ErrEmpty  = errors.New("pdf is empty")
	ErrNotPDF = errors.New("not a pdf document")
)

// Info summarises a parsed PDF.
type Info struct {
	Pages   int
	HasText bool
}

// Inspect parses data as a PDF and reports its page count and whether any
// plain text could be extracted. Scanned documents parse fine but report
// HasText false.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return Info{}, ErrNotPDF
	}

	reader, err := openReader(data)
	if err != nil {
		return Info{}, err
	}
	info := Info{Pages: reader.NumPage()}

	text, err := plainText(reader)
	if err != nil {
		return info, nil
	}
	info.HasText = len(bytes.TrimSpace([]byte(text))) > 0
	return info, nil
}

func openReader(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf failed: %v", r)
		}
	}()
	reader, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf failed: %w", err)
	}
	return reader, nil
}

func plainText(reader *pdf.Reader) (text string, err error) {
	// the parser panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract pdf text failed: %v", r)
		}
	}()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
