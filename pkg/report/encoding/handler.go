package encoding

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// sniffLen is the number of bytes used by http.DetectContentType
	sniffLen = 512
	// peekLen is the prefix inspected before any line is handed to a parser.
	peekLen = 1024
	// Null byte threshold percentage to consider a file binary.
	nullThreshold = 0.15 // 15%
)

// ErrBinaryContent indicates that the input looks like binary data rather than text records.
var ErrBinaryContent = errors.New("binary content encountered")

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decoder turns a raw catalog or order-file stream into UTF-8 text.
type Decoder interface {
	// NewReader inspects the head of r and returns a reader yielding UTF-8,
	// together with the IANA name of the detected source encoding.
	// Binary input is refused with ErrBinaryContent.
	NewReader(r io.Reader) (utf8Reader io.Reader, encodingName string, err error)

	// IsBinary checks if the content is likely binary data based on MIME type sniffing
	// (http.DetectContentType on first 512 bytes) and null byte percentage.
	IsBinary(content []byte) bool
}

// charsetDecoder implements Decoder using golang.org/x/net/html/charset.
type charsetDecoder struct {
	defaultEncoding string
}

// NewCharsetDecoder creates a decoder. defaultEncoding (for example "iso-8859-2")
// replaces the windows-1252 guess for input that is not valid UTF-8; empty keeps the guess.
func NewCharsetDecoder(defaultEncoding string) Decoder {
	return &charsetDecoder{defaultEncoding: strings.TrimSpace(defaultEncoding)}
}

// NewReader implements the Decoder interface.
func (d *charsetDecoder) NewReader(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, peekLen)
	head, err := br.Peek(peekLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", fmt.Errorf("failed to read stream head: %w", err)
	}

	hasUTF16BOM := bytes.HasPrefix(head, bomUTF16LE) || bytes.HasPrefix(head, bomUTF16BE)
	if !hasUTF16BOM && d.IsBinary(head) {
		return nil, "", ErrBinaryContent
	}

	enc, name, certain := charset.DetermineEncoding(head, "text/plain")
	if !certain && isASCII(head) {
		// DetermineEncoding guesses windows-1252 for plain ASCII.
		enc, name = unicode.UTF8, "utf-8"
	}
	if !certain && name != "utf-8" && d.defaultEncoding != "" {
		if fallback, fallbackName := charset.Lookup(d.defaultEncoding); fallback != nil {
			enc, name = fallback, fallbackName
		}
	}
	if name == "" {
		name = "unknown"
	}

	// BOMOverride strips a leading BOM and switches to the encoding it announces.
	return transform.NewReader(br, unicode.BOMOverride(enc.NewDecoder())), name, nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

// isMIMETextBased checks if a detected MIME type is likely text-based.
func isMIMETextBased(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	// Allow octet-stream to potentially be text, rely on null check
	return mimeType == "application/octet-stream"
}

// IsBinary implements the Decoder interface.
func (d *charsetDecoder) IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	contentType := http.DetectContentType(content[:min(len(content), sniffLen)])
	if !isMIMETextBased(contentType) {
		return true
	}

	window := content[:min(len(content), peekLen)]
	nullCount := bytes.Count(window, []byte{0x00})
	return float64(nullCount)/float64(len(window)) > nullThreshold
}
