package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/psgc-resolver/app/models"
)

const (
	codeIVA      = "040000000"
	codeNCR      = "130000000"
	codeLaguna   = "043400000"
	codeBatangas = "041000000"
	codeCalamba  = "043404000"
	codeReal     = "043404045"
)

var (
	fixtureRegions = []models.Record{
		{Code: "010000000", Name: "Region I"},
		{Code: codeIVA, Name: "Region IV-A"},
		{Code: codeNCR, Name: "National Capital Region"},
	}
	fixtureProvinces = map[string][]models.Record{
		codeIVA: {
			{Code: codeBatangas, Name: "Batangas", Region: codeIVA},
			{Code: codeLaguna, Name: "Laguna", Region: codeIVA},
		},
		codeNCR: {
			{Code: "137400000", Name: "NCR, Second District", Region: codeNCR},
		},
	}
	fixtureCities = map[string][]models.Record{
		codeLaguna: {
			{Code: "043403000", Name: "Cabuyao City", Type: "City", Region: codeIVA, Province: codeLaguna},
			{Code: codeCalamba, Name: "City of Calamba", Type: "City", Region: codeIVA, Province: codeLaguna},
			{Code: "043405000", Name: "Calauan", Type: "Mun", Region: codeIVA, Province: codeLaguna},
		},
	}
	fixtureBarangays = map[string][]models.Record{
		codeCalamba: {
			{Code: "043404001", Name: "Bagong Kalsada", Status: "Urban", Region: codeIVA, Province: codeLaguna, CityMunicipality: codeCalamba},
			{Code: codeReal, Name: "Real", Status: "Urban", Region: codeIVA, Province: codeLaguna, CityMunicipality: codeCalamba},
		},
	}
)

func fixtureOptions(level models.Level, parent string) []models.Record {
	switch level {
	case models.LevelRegion:
		return fixtureRegions
	case models.LevelProvince:
		return fixtureProvinces[parent]
	case models.LevelCity:
		return fixtureCities[parent]
	case models.LevelBarangay:
		return fixtureBarangays[parent]
	}
	return nil
}

func findFixture(level models.Level, parent, code string) models.Record {
	for _, r := range fixtureOptions(level, parent) {
		if r.Code == code {
			return r
		}
	}
	panic("fixture không tồn tại: " + code)
}

// editAddress địa chỉ lưu dạng tên, code == name
func editAddress() models.AddressData {
	return models.AddressData{
		BlockLot: "Blk 5 Lot 12",
		Street:   "Rizal St",
		Region:   models.Unresolved("Region IV-A"),
		Province: models.Unresolved("Laguna"),
		City:     models.Unresolved("Calamba"),
		Barangay: models.Unresolved("Real"),
		Country:  "Philippines",
		Zipcode:  "4027",
	}
}

type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	failFor map[models.Level]error
	gate    chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(map[string]int), failFor: make(map[models.Level]error)}
}

func (f *fakeFetcher) FetchOptions(ctx context.Context, level models.Level, parentKey string) ([]models.Record, error) {
	f.mu.Lock()
	f.calls[fmt.Sprintf("%s/%s", level, parentKey)]++
	err := f.failFor[level]
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return fixtureOptions(level, parentKey), nil
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}
