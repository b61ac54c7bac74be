package pri

import (
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// detectPrefix bounds how much of the buffer the charset detector looks at.
const detectPrefix = 4000

// minConfidence is the detector score (0-100) below which we fall back to UTF-8.
const minConfidence = 10

const fallbackEncoding = "UTF-8"

// charsetAliases covers detector names that neither index knows verbatim.
var charsetAliases = map[string]string{
	"GB-18030":    "gb18030",
	"ISO-2022-JP": "iso-2022-jp",
}

// Decode turns raw file bytes into text. The charset is guessed from a byte
// frequency detector over the first few kilobytes; an unknown or unsure
// guess falls back to UTF-8. Bytes that cannot be decoded become U+FFFD.
// Decode never fails; the second result names the encoding that was used.
func Decode(raw []byte) (string, string) {
	name, enc := detectEncoding(raw)

	// A byte order mark always wins over the detector.
	t := unicode.BOMOverride(enc.NewDecoder())
	out, _, err := transform.Bytes(t, raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD"), fallbackEncoding
	}
	return strings.ToValidUTF8(string(out), "\uFFFD"), name
}

func detectEncoding(raw []byte) (string, encoding.Encoding) {
	utf8 := unicode.UTF8
	if len(raw) == 0 {
		return fallbackEncoding, utf8
	}
	prefix := raw
	if len(prefix) > detectPrefix {
		prefix = prefix[:detectPrefix]
	}

	res, err := chardet.NewTextDetector().DetectBest(prefix)
	if err != nil || res == nil || res.Confidence < minConfidence || res.Charset == "" {
		return fallbackEncoding, utf8
	}
	enc := lookupEncoding(res.Charset)
	if enc == nil {
		return fallbackEncoding, utf8
	}
	return res.Charset, enc
}

func lookupEncoding(name string) encoding.Encoding {
	if alias, ok := charsetAliases[name]; ok {
		name = alias
	}
	if enc, err := htmlindex.Get(name); err == nil && enc != nil {
		return enc
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc
	}
	return nil
}
