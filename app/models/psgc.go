package models

import (
	"fmt"
	"strings"
)

// Level cấp hành chính trong chuỗi PSGC
type Level int

// Level constants
const (
	LevelRegion Level = iota + 1
	LevelProvince
	LevelCity
	LevelBarangay
)

// Levels danh sách cấp theo thứ tự từ trên xuống
var Levels = []Level{LevelRegion, LevelProvince, LevelCity, LevelBarangay}

// String trả về tên cấp dùng trong API và field key (address.region, ...)
func (l Level) String() string {
	switch l {
	case LevelRegion:
		return "region"
	case LevelProvince:
		return "province"
	case LevelCity:
		return "city"
	case LevelBarangay:
		return "barangay"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Plural tên số nhiều, dùng cho thông báo "Failed to load X"
func (l Level) Plural() string {
	switch l {
	case LevelRegion:
		return "regions"
	case LevelProvince:
		return "provinces"
	case LevelCity:
		return "cities"
	case LevelBarangay:
		return "barangays"
	default:
		return l.String()
	}
}

// Valid kiểm tra level có hợp lệ không
func (l Level) Valid() bool {
	return l >= LevelRegion && l <= LevelBarangay
}

// Parent trả về cấp cha, 0 nếu là region
func (l Level) Parent() Level {
	if l <= LevelRegion || !l.Valid() {
		return 0
	}
	return l - 1
}

// Child trả về cấp con, 0 nếu là barangay
func (l Level) Child() Level {
	if l >= LevelBarangay || !l.Valid() {
		return 0
	}
	return l + 1
}

// FieldKey key lỗi hiển thị dưới selector
func (l Level) FieldKey() string {
	return "address." + l.String()
}

// MarshalText serialize level thành tên
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("level không hợp lệ: %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText parse level từ tên
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parse tên cấp (chấp nhận cả tên endpoint)
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "region", "regions":
		return LevelRegion, nil
	case "province", "provinces":
		return LevelProvince, nil
	case "city", "cities", "city_municipality", "city-municipality", "cities-municipalities", "municipality":
		return LevelCity, nil
	case "barangay", "barangays":
		return LevelBarangay, nil
	}
	return 0, fmt.Errorf("level không hợp lệ: %q", s)
}

// Record bản ghi PSGC dùng chung cho mọi cấp
type Record struct {
	Code             string `json:"code" bson:"code"`                                               // Mã PSGC
	Name             string `json:"name" bson:"name"`                                               // Tên đơn vị
	Type             string `json:"type,omitempty" bson:"type,omitempty"`                           // City / Mun (chỉ cấp city)
	Status           string `json:"status,omitempty" bson:"status,omitempty"`                       // Trạng thái (chỉ cấp barangay)
	Region           string `json:"region,omitempty" bson:"region,omitempty"`                       // Region cha
	Province         string `json:"province,omitempty" bson:"province,omitempty"`                   // Province cha
	CityMunicipality string `json:"city_municipality,omitempty" bson:"city_municipality,omitempty"` // City/municipality cha
	ZipCode          string `json:"zip_code,omitempty" bson:"zip_code,omitempty"`                   // Mã bưu chính nếu API trả về
}

// Region vùng - cấp cao nhất
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Province tỉnh, thuộc đúng một region
type Province struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

// CityMunicipality thành phố/đô thị, thuộc đúng một province
type CityMunicipality struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Region   string `json:"region,omitempty"`
	Province string `json:"province,omitempty"`
	ZipCode  string `json:"zip_code,omitempty"`
}

// Barangay đơn vị nhỏ nhất, thuộc đúng một city/municipality
type Barangay struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	Status           string `json:"status,omitempty"`
	Region           string `json:"region,omitempty"`
	Province         string `json:"province,omitempty"`
	CityMunicipality string `json:"city_municipality,omitempty"`
}

// IsCity phân biệt city với municipality
func (c CityMunicipality) IsCity() bool {
	return strings.EqualFold(c.Type, "city")
}

// RegionFromRecord chuyển Record sang Region
func RegionFromRecord(r Record) Region {
	return Region{Code: r.Code, Name: r.Name}
}

// ProvinceFromRecord chuyển Record sang Province
func ProvinceFromRecord(r Record) Province {
	return Province{Code: r.Code, Name: r.Name, Region: r.Region}
}

// CityFromRecord chuyển Record sang CityMunicipality
func CityFromRecord(r Record) CityMunicipality {
	return CityMunicipality{
		Code:     r.Code,
		Name:     r.Name,
		Type:     r.Type,
		Region:   r.Region,
		Province: r.Province,
		ZipCode:  r.ZipCode,
	}
}

// BarangayFromRecord chuyển Record sang Barangay
func BarangayFromRecord(r Record) Barangay {
	return Barangay{
		Code:             r.Code,
		Name:             r.Name,
		Status:           r.Status,
		Region:           r.Region,
		Province:         r.Province,
		CityMunicipality: r.CityMunicipality,
	}
}
