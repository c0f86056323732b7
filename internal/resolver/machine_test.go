package resolver

import (
	"errors"
	"testing"

	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/internal/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drive trả lời mọi lệnh fetch bằng fixture cho tới khi machine ổn định
func drive(t *testing.T, m *Machine, step Step) {
	t.Helper()
	queue := append([]Fetch(nil), step.Fetches...)
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		next, err := m.Apply(OptionsLoaded{Level: f.Level, Gen: f.Gen, Records: fixtureOptions(f.Level, f.ParentKey)})
		require.NoError(t, err)
		queue = append(queue, next.Fetches...)
	}
}

func singleFetch(t *testing.T, step Step, level models.Level, parent string) Fetch {
	t.Helper()
	require.Len(t, step.Fetches, 1)
	f := step.Fetches[0]
	assert.Equal(t, level, f.Level)
	assert.Equal(t, parent, f.ParentKey)
	return f
}

func TestMachine_EditModeCascade(t *testing.T) {
	m := NewMachine(nil)

	step, err := m.Apply(Hydrate{Address: editAddress()})
	require.NoError(t, err)
	f := singleFetch(t, step, models.LevelRegion, "")
	assert.Equal(t, StateResolving, m.State(models.LevelRegion))
	assert.Equal(t, StateResolving, m.State(models.LevelBarangay))
	assert.False(t, m.Enabled(models.LevelProvince))

	// Regions load → region resolves, provinces fetched for its code
	step, err = m.Apply(OptionsLoaded{Level: f.Level, Gen: f.Gen, Records: fixtureRegions})
	require.NoError(t, err)
	assert.True(t, step.Changed)
	assert.Equal(t, StateResolved, m.State(models.LevelRegion))
	assert.Equal(t, codeIVA, m.Address().Region.Code())
	f = singleFetch(t, step, models.LevelProvince, codeIVA)

	step, err = m.Apply(OptionsLoaded{Level: f.Level, Gen: f.Gen, Records: fixtureProvinces[codeIVA]})
	require.NoError(t, err)
	assert.Equal(t, codeLaguna, m.Address().Province.Code())
	f = singleFetch(t, step, models.LevelCity, codeLaguna)

	// City resolves by substring, barangay giữ nguyên tên
	step, err = m.Apply(OptionsLoaded{Level: f.Level, Gen: f.Gen, Records: fixtureCities[codeLaguna]})
	require.NoError(t, err)
	require.Len(t, step.Resolutions, 1)
	assert.Equal(t, matcher.MatchStrategySubstring, step.Resolutions[0].Match.Strategy)
	assert.Equal(t, codeCalamba, m.Address().City.Code())
	assert.True(t, m.Address().Barangay.IsUnresolved())
	assert.Equal(t, "Real", m.Address().Barangay.Name())
	f = singleFetch(t, step, models.LevelBarangay, codeCalamba)

	step, err = m.Apply(OptionsLoaded{Level: f.Level, Gen: f.Gen, Records: fixtureBarangays[codeCalamba]})
	require.NoError(t, err)
	assert.Empty(t, step.Fetches)

	addr := m.Address()
	assert.True(t, addr.IsComplete())
	assert.Equal(t, findFixture(models.LevelRegion, "", codeIVA), mustRecord(t, addr.Region))
	assert.Equal(t, findFixture(models.LevelProvince, codeIVA, codeLaguna), mustRecord(t, addr.Province))
	assert.Equal(t, findFixture(models.LevelCity, codeLaguna, codeCalamba), mustRecord(t, addr.City))
	assert.Equal(t, findFixture(models.LevelBarangay, codeCalamba, codeReal), mustRecord(t, addr.Barangay))
	assert.Equal(t, "Blk 5 Lot 12", addr.BlockLot)
	assert.Equal(t, "4027", addr.Zipcode)
	for _, l := range models.Levels {
		assert.Equal(t, StateResolved, m.State(l), l.String())
	}
}

func mustRecord(t *testing.T, sel models.Selection) models.Record {
	t.Helper()
	rec, ok := sel.Record()
	require.True(t, ok, "selection chưa resolve: %s", sel)
	return rec
}

func TestMachine_UserSelectResetsDescendants(t *testing.T) {
	m := NewMachine(nil)
	step, err := m.Apply(Hydrate{Address: editAddress()})
	require.NoError(t, err)
	drive(t, m, step)
	require.True(t, m.Address().IsComplete())

	step, err = m.Apply(Select{Level: models.LevelRegion, Code: codeNCR})
	require.NoError(t, err)
	assert.True(t, step.Changed)
	singleFetch(t, step, models.LevelProvince, codeNCR)

	addr := m.Address()
	assert.Equal(t, codeNCR, addr.Region.Code())
	assert.True(t, addr.Province.IsEmpty())
	assert.True(t, addr.City.IsEmpty())
	assert.True(t, addr.Barangay.IsEmpty())
	assert.Empty(t, m.Options(models.LevelProvince))
	assert.Empty(t, m.Options(models.LevelCity))
	assert.Equal(t, LoadStatusLoading, m.Status(models.LevelProvince))
	assert.False(t, m.Enabled(models.LevelCity))
}

func TestMachine_SelectSameCodeIsNoop(t *testing.T) {
	m := NewMachine(nil)
	step, _ := m.Apply(Hydrate{Address: editAddress()})
	drive(t, m, step)

	step, err := m.Apply(Select{Level: models.LevelRegion, Code: codeIVA})
	require.NoError(t, err)
	assert.False(t, step.Changed)
	assert.Empty(t, step.Fetches)
	assert.True(t, m.Address().IsComplete())
}

func TestMachine_ProvinceLoadFailure(t *testing.T) {
	m := NewMachine(nil)
	step, err := m.Apply(Hydrate{Address: editAddress()})
	require.NoError(t, err)
	f := singleFetch(t, step, models.LevelRegion, "")

	step, err = m.Apply(OptionsLoaded{Level: f.Level, Gen: f.Gen, Records: fixtureRegions})
	require.NoError(t, err)
	f = singleFetch(t, step, models.LevelProvince, codeIVA)

	step, err = m.Apply(LoadFailed{Level: f.Level, Gen: f.Gen, Err: errors.New("HTTP 500")})
	require.NoError(t, err)
	assert.Empty(t, step.Fetches)
	assert.False(t, step.Changed)

	assert.Equal(t, StateResolved, m.State(models.LevelRegion))
	assert.Empty(t, m.Options(models.LevelProvince))
	assert.Equal(t, LoadStatusFailed, m.Status(models.LevelProvince))
	assert.Equal(t, map[string]string{"address.province": "Failed to load provinces"}, m.Errors())
	assert.Equal(t, "Laguna", m.Address().Province.Name(), "giá trị giữ nguyên khi load lỗi")
	assert.Equal(t, StateUnresolved, m.State(models.LevelProvince))

	// Mở lại selector sẽ fetch lại
	step, err = m.Apply(Open{Level: models.LevelProvince})
	require.NoError(t, err)
	f = singleFetch(t, step, models.LevelProvince, codeIVA)
	assert.Empty(t, m.Errors())

	drive(t, m, step)
	assert.True(t, m.Address().IsComplete())
}

func TestMachine_StaleResultsDiscarded(t *testing.T) {
	m := NewMachine(nil)
	step, _ := m.Apply(Hydrate{Address: models.AddressData{}})
	f := singleFetch(t, step, models.LevelRegion, "")
	_, err := m.Apply(OptionsLoaded{Level: f.Level, Gen: f.Gen, Records: fixtureRegions})
	require.NoError(t, err)

	step, err = m.Apply(Select{Level: models.LevelRegion, Code: codeIVA})
	require.NoError(t, err)
	first := singleFetch(t, step, models.LevelProvince, codeIVA)

	// Người dùng đổi region trước khi provinces của IV-A về
	step, err = m.Apply(Select{Level: models.LevelRegion, Code: codeNCR})
	require.NoError(t, err)
	second := singleFetch(t, step, models.LevelProvince, codeNCR)
	assert.NotEqual(t, first.Gen, second.Gen)

	step, err = m.Apply(OptionsLoaded{Level: first.Level, Gen: first.Gen, Records: fixtureProvinces[codeIVA]})
	require.NoError(t, err)
	assert.True(t, step.Stale)
	assert.Empty(t, m.Options(models.LevelProvince))
	assert.Equal(t, LoadStatusLoading, m.Status(models.LevelProvince))

	step, err = m.Apply(LoadFailed{Level: first.Level, Gen: first.Gen, Err: errors.New("late")})
	require.NoError(t, err)
	assert.True(t, step.Stale)
	assert.Empty(t, m.Errors())

	step, err = m.Apply(OptionsLoaded{Level: second.Level, Gen: second.Gen, Records: fixtureProvinces[codeNCR]})
	require.NoError(t, err)
	assert.False(t, step.Stale)
	assert.Equal(t, fixtureProvinces[codeNCR], m.Options(models.LevelProvince))
}

func TestMachine_CodeAndNameRoundTrip(t *testing.T) {
	byName := NewMachine(nil)
	step, _ := byName.Apply(Hydrate{Address: editAddress()})
	drive(t, byName, step)

	// Chỉ có code + name tối thiểu, giống dữ liệu đã lưu ở các CRUD service
	coded := models.AddressData{
		BlockLot: "Blk 5 Lot 12",
		Street:   "Rizal St",
		Region:   models.Resolved(models.Record{Code: codeIVA, Name: "Region IV-A"}),
		Province: models.Resolved(models.Record{Code: codeLaguna, Name: "Laguna"}),
		City:     models.Resolved(models.Record{Code: codeCalamba, Name: "City of Calamba"}),
		Barangay: models.Resolved(models.Record{Code: codeReal, Name: "Real"}),
		Country:  "Philippines",
		Zipcode:  "4027",
	}
	byCode := NewMachine(nil)
	step, _ = byCode.Apply(Hydrate{Address: coded})
	assert.Len(t, step.Fetches, 4, "mọi cấp có cha đã resolve được fetch ngay")
	drive(t, byCode, step)

	assert.Equal(t, byName.Address(), byCode.Address())
}

func TestMachine_IdempotentRehydrate(t *testing.T) {
	m := NewMachine(nil)
	step, _ := m.Apply(Hydrate{Address: editAddress()})
	drive(t, m, step)
	first := m.Address()

	step, err := m.Apply(Hydrate{Address: first})
	require.NoError(t, err)
	assert.Empty(t, step.Fetches)
	assert.Equal(t, first, m.Address())

	step, err = m.Apply(Hydrate{Address: editAddress()})
	require.NoError(t, err)
	assert.Empty(t, step.Fetches, "option đã load cho cùng parent được dùng lại")
	assert.Equal(t, first, m.Address())
}

func TestMachine_MatchMissIsSilent(t *testing.T) {
	m := NewMachine(nil)
	addr := editAddress()
	addr.Region = models.Unresolved("Atlantis")

	step, err := m.Apply(Hydrate{Address: addr})
	require.NoError(t, err)
	f := singleFetch(t, step, models.LevelRegion, "")

	step, err = m.Apply(OptionsLoaded{Level: f.Level, Gen: f.Gen, Records: fixtureRegions})
	require.NoError(t, err)
	assert.Empty(t, step.Fetches)
	assert.False(t, step.Changed)
	assert.Equal(t, StateUnresolved, m.State(models.LevelRegion))
	assert.Equal(t, StateUnresolved, m.State(models.LevelProvince))
	assert.Empty(t, m.Errors())
}

func TestMachine_ResolvedCodeOutsideParentIsDemoted(t *testing.T) {
	m := NewMachine(nil)
	addr := editAddress()
	addr.Region = models.Unresolved("National Capital Region")
	addr.Province = models.Resolved(models.Record{Code: codeLaguna, Name: "Laguna"})

	step, err := m.Apply(Hydrate{Address: addr})
	require.NoError(t, err)
	drive(t, m, step)

	got := m.Address()
	assert.Equal(t, codeNCR, got.Region.Code())
	assert.True(t, got.Province.IsUnresolved())
	assert.Equal(t, "Laguna", got.Province.Name())
	assert.Equal(t, StateUnresolved, m.State(models.LevelProvince))

	// Cấp con đã cascade theo Laguna phải kiểm tra lại
	assert.True(t, got.City.IsUnresolved())
	assert.Equal(t, "City of Calamba", got.City.Name())
	assert.True(t, got.Barangay.IsUnresolved())
	assert.False(t, m.Enabled(models.LevelCity))
	assert.Empty(t, m.Options(models.LevelCity))
	assert.False(t, got.IsComplete())

	step, err = m.Apply(Select{Level: models.LevelProvince, Code: "137400000"})
	require.NoError(t, err)
	assert.True(t, step.Changed)
	singleFetch(t, step, models.LevelCity, "137400000")
	assert.True(t, m.Address().City.IsEmpty())
}

func TestMachine_MatchedMarkerPreventsRematch(t *testing.T) {
	m := NewMachine(nil)
	addr := editAddress()
	addr.Province = models.Unresolved("Rizal")

	step, _ := m.Apply(Hydrate{Address: addr})
	drive(t, m, step)
	assert.Equal(t, StateUnresolved, m.State(models.LevelProvince))

	// Event không liên quan không kích hoạt match lại
	step, err := m.Apply(Open{Level: models.LevelProvince})
	require.NoError(t, err)
	assert.Empty(t, step.Fetches)
	assert.Empty(t, step.Resolutions)
}

func TestMachine_Errors(t *testing.T) {
	m := NewMachine(nil)

	_, err := m.Apply(Open{Level: models.LevelCity})
	assert.ErrorIs(t, err, ErrLevelDisabled)

	_, err = m.Apply(Select{Level: models.LevelRegion, Code: codeIVA})
	assert.ErrorIs(t, err, ErrOptionsNotLoaded)

	step, err := m.Apply(Open{Level: models.LevelRegion})
	require.NoError(t, err)
	drive(t, m, step)

	_, err = m.Apply(Select{Level: models.LevelRegion, Code: "999"})
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, err = m.Apply(Open{Level: models.Level(9)})
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestMachine_ClearResetsLevelAndDescendants(t *testing.T) {
	m := NewMachine(nil)
	step, _ := m.Apply(Hydrate{Address: editAddress()})
	drive(t, m, step)

	step, err := m.Apply(Clear{Level: models.LevelCity})
	require.NoError(t, err)
	assert.True(t, step.Changed)

	addr := m.Address()
	assert.True(t, addr.Province.IsResolved())
	assert.True(t, addr.City.IsEmpty())
	assert.True(t, addr.Barangay.IsEmpty())
	assert.NotEmpty(t, m.Options(models.LevelCity), "option của cấp bị xóa vẫn còn để chọn lại")
	assert.Empty(t, m.Options(models.LevelBarangay))
	assert.False(t, m.Enabled(models.LevelBarangay))

	step, err = m.Apply(Select{Level: models.LevelCity, Code: codeCalamba})
	require.NoError(t, err)
	singleFetch(t, step, models.LevelBarangay, codeCalamba)
}

func TestMachine_StrictMatcherLeavesSubstringUnresolved(t *testing.T) {
	m := NewMachine(matcher.NewNameMatcher(matcher.Config{Strictness: matcher.StrictnessStrict}))
	step, _ := m.Apply(Hydrate{Address: editAddress()})
	drive(t, m, step)

	addr := m.Address()
	assert.True(t, addr.Province.IsResolved())
	assert.True(t, addr.City.IsUnresolved())
	assert.Equal(t, StateUnresolved, m.State(models.LevelCity))
	assert.Equal(t, StateUnresolved, m.State(models.LevelBarangay))
}

func TestMachine_View(t *testing.T) {
	m := NewMachine(nil)
	step, _ := m.Apply(Hydrate{Address: editAddress()})
	drive(t, m, step)

	view := m.View()
	require.Len(t, view.Levels, 4)
	assert.True(t, view.Complete())
	city := view.Level(models.LevelCity)
	assert.Equal(t, StateResolved, city.State)
	assert.Equal(t, LoadStatusLoaded, city.Status)
	assert.True(t, city.Enabled)
	assert.Len(t, city.Options, 3)
	assert.Empty(t, view.Errors)
}
