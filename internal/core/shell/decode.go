package shell

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffEncoding picks the encoding for an execution from its first chunk.
// A byte order mark or an HTML meta charset wins. Otherwise valid UTF-8
// decodes as UTF-8, and only invalid bytes fall back to the sniffer's guess.
func sniffEncoding(first []byte) encoding.Encoding {
	enc, name, certain := charset.DetermineEncoding(first, "")
	if enc == nil || name == "utf-8" {
		return unicode.UTF8
	}
	if !certain && validUTF8(first) {
		return unicode.UTF8
	}
	return enc
}

// validUTF8 reports whether p is UTF-8, allowing a rune cut off at the end
// of the chunk.
func validUTF8(p []byte) bool {
	if utf8.Valid(p) {
		return true
	}
	for i := 1; i < utf8.UTFMax && i < len(p); i++ {
		head, tail := p[:len(p)-i], p[len(p)-i:]
		if utf8.RuneStart(tail[0]) && !utf8.FullRune(tail) {
			return utf8.Valid(head)
		}
	}
	return false
}

// streamDecoder carries a transformer's state across chunks so multi-byte
// sequences split between writes decode correctly.
type streamDecoder struct {
	t       transform.Transformer
	pending []byte
	buf     []byte
}

func newStreamDecoder(enc encoding.Encoding) *streamDecoder {
	return &streamDecoder{t: enc.NewDecoder(), buf: make([]byte, 4096)}
}

func (d *streamDecoder) decode(p []byte, atEOF bool) string {
	src := p
	if len(d.pending) > 0 {
		src = append(d.pending, p...)
		d.pending = nil
	}

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.buf, src, atEOF)
		out.Write(d.buf[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return out.String()
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				d.buf = make([]byte, 2*len(d.buf))
			}
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
			return out.String()
		default:
			// Undecodable input: keep it visible rather than dropping it.
			d.t.Reset()
			out.WriteString(strings.ToValidUTF8(string(src), "�"))
			return out.String()
		}
	}
}
