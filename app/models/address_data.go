package models

// AddressData bản nháp địa chỉ giữ trong form, trộn bản ghi PSGC và text tự do
type AddressData struct {
	BlockLot string    `json:"blockLot"` // Block/lot, số nhà
	Street   string    `json:"street"`   // Tên đường
	Barangay Selection `json:"barangay"`
	City     Selection `json:"city"`
	Province Selection `json:"province"`
	Region   Selection `json:"region"`
	Country  string    `json:"country"`
	Zipcode  string    `json:"zipcode"`
}

// Get lấy selection theo cấp
func (a AddressData) Get(level Level) Selection {
	switch level {
	case LevelRegion:
		return a.Region
	case LevelProvince:
		return a.Province
	case LevelCity:
		return a.City
	case LevelBarangay:
		return a.Barangay
	}
	return Selection{}
}

// Set gán selection theo cấp
func (a *AddressData) Set(level Level, sel Selection) {
	switch level {
	case LevelRegion:
		a.Region = sel
	case LevelProvince:
		a.Province = sel
	case LevelCity:
		a.City = sel
	case LevelBarangay:
		a.Barangay = sel
	}
}

// IsComplete tất cả bốn cấp đã resolve
func (a AddressData) IsComplete() bool {
	for _, level := range Levels {
		if !a.Get(level).IsResolved() {
			return false
		}
	}
	return true
}

// FlatAddress dạng phẳng name/code khi submit cho các CRUD service
type FlatAddress struct {
	BlockLot     string `json:"block_lot"`
	Street       string `json:"street"`
	Barangay     string `json:"barangay"`
	BarangayCode string `json:"barangay_code"`
	City         string `json:"city"`
	CityCode     string `json:"city_code"`
	Province     string `json:"province"`
	ProvinceCode string `json:"province_code"`
	Region       string `json:"region"`
	RegionCode   string `json:"region_code"`
	Country      string `json:"country"`
	Zipcode      string `json:"zipcode"`
}

// Flatten serialize về chuỗi name/code; cấp chưa resolve chỉ có name
func (a AddressData) Flatten() FlatAddress {
	return FlatAddress{
		BlockLot:     a.BlockLot,
		Street:       a.Street,
		Barangay:     a.Barangay.Name(),
		BarangayCode: a.Barangay.Code(),
		City:         a.City.Name(),
		CityCode:     a.City.Code(),
		Province:     a.Province.Name(),
		ProvinceCode: a.Province.Code(),
		Region:       a.Region.Name(),
		RegionCode:   a.Region.Code(),
		Country:      a.Country,
		Zipcode:      a.Zipcode,
	}
}
