package normalizer

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeUTF8 decode bytes theo UTF-8; byte không hợp lệ được hiểu là Latin-1
func DecodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b) + len(b)/4)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(charmap.ISO8859_1.DecodeByte(b[0]))
			b = b[1:]
			continue
		}
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}

// RepairMojibake sửa chuỗi UTF-8 bị decode nhầm thành Latin-1/Windows-1252
// ("ParaÃ±aque" → "Parañaque"). Chuỗi không có dấu hiệu lỗi được giữ nguyên.
func RepairMojibake(s string) string {
	// Tối đa 2 lượt cho trường hợp bị encode hai lần
	for i := 0; i < 2; i++ {
		if !hasMojibakeLead(s) {
			return s
		}
		repaired := repairOnce(s)
		if repaired == s {
			return s
		}
		s = repaired
	}
	return s
}

// Clean chuẩn hóa tên lấy từ API: sửa encoding và gộp khoảng trắng
func Clean(s string) string {
	return CollapseSpaces(RepairMojibake(s))
}

func hasMojibakeLead(s string) bool {
	for _, r := range s {
		if sequenceLen(r) > 0 {
			return true
		}
	}
	return false
}

func repairOnce(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(runes); {
		if n := sequenceLen(runes[i]); n > 0 && i+n <= len(runes) {
			if r, ok := decodeSequence(runes[i : i+n]); ok {
				sb.WriteRune(r)
				i += n
				continue
			}
		}
		sb.WriteRune(runes[i])
		i++
	}
	return sb.String()
}

// sequenceLen độ dài chuỗi UTF-8 nếu rune là lead byte bị hiểu nhầm thành Latin-1
func sequenceLen(r rune) int {
	switch {
	case r >= 0xC2 && r <= 0xDF:
		return 2
	case r >= 0xE0 && r <= 0xEF:
		return 3
	case r >= 0xF0 && r <= 0xF4:
		return 4
	}
	return 0
}

func decodeSequence(runes []rune) (rune, bool) {
	buf := make([]byte, 0, len(runes))
	buf = append(buf, byte(runes[0]))
	for _, c := range runes[1:] {
		b, ok := latinByte(c)
		if !ok || b < 0x80 || b > 0xBF {
			return 0, false
		}
		buf = append(buf, b)
	}

	r, size := utf8.DecodeRune(buf)
	if r == utf8.RuneError || size != len(buf) {
		return 0, false
	}
	return r, true
}

// latinByte byte gốc của rune: Latin-1 trước, Windows-1252 cho dải 0x80-0x9F
func latinByte(r rune) (byte, bool) {
	if r >= 0x80 && r <= 0xFF {
		return byte(r), true
	}
	return charmap.Windows1252.EncodeRune(r)
}
