package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces      = regexp.MustCompile(`\s+`)
	rePunctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// Viết tắt thường gặp trong tên địa danh PSGC, so khớp theo token
var abbreviations = map[string]string{
	"sto":  "santo",
	"sta":  "santa",
	"brgy": "barangay",
	"bgy":  "barangay",
	"pob":  "poblacion",
	"gen":  "general",
	"mun":  "municipality",
	"prov": "province",
	"st":   "saint",
}

// StripDiacritics loại bỏ dấu (ñ → n, é → e)
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	out, _, _ := transform.String(t, s)
	return out
}

// isMn kiểm tra xem rune có phải là diacritic mark không
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// RemoveAccentsAndLowercase loại bỏ dấu và chuyển về lowercase
func RemoveAccentsAndLowercase(s string) string {
	return strings.ToLower(StripDiacritics(s))
}

// CollapseSpaces trim và gộp khoảng trắng liên tiếp
func CollapseSpaces(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// Fold chuẩn hóa tên để so khớp không phân biệt dấu, hoa thường, dấu câu
// và viết tắt: "Sto. Niño" và "santo nino" cho cùng kết quả.
func Fold(s string) string {
	s = unidecode.Unidecode(StripDiacritics(s))
	s = strings.ToLower(s)
	s = rePunctuation.ReplaceAllString(s, " ")

	words := strings.Fields(s)
	for i, w := range words {
		if full, ok := abbreviations[w]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}
