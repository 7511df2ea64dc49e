package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Common Latin diacritics folded to ASCII before slugging.
var folder = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ä", "a", "ã", "a",
	"ç", "c", "è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
	"ñ", "n", "ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ğ", "g", "ş", "s", "ý", "y",
)

// Make builds a URL-friendly slug from a name:
//
//	"Wool Socks"  → "wool-socks"
//	"Café  Crème" → "cafe-creme"
func Make(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = folder.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
