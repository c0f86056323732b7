package resolver

import (
	"errors"
	"fmt"

	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/internal/matcher"
)

var (
	// ErrLevelDisabled cấp cha chưa resolve nên selector bị khóa
	ErrLevelDisabled = errors.New("level is disabled until its parent is resolved")
	// ErrUnknownOption code không có trong danh sách option đã load
	ErrUnknownOption = errors.New("option not found in loaded list")
	// ErrOptionsNotLoaded chưa có danh sách option để chọn
	ErrOptionsNotLoaded = errors.New("options are not loaded")
	// ErrInvalidLevel level không hợp lệ
	ErrInvalidLevel = errors.New("invalid level")
)

// LoadStatus trạng thái load danh sách option của một cấp
type LoadStatus string

const (
	LoadStatusIdle    LoadStatus = "idle"
	LoadStatusLoading LoadStatus = "loading"
	LoadStatusLoaded  LoadStatus = "loaded"
	LoadStatusFailed  LoadStatus = "failed"
)

// LevelState trạng thái giá trị của một cấp
type LevelState string

const (
	StateEmpty      LevelState = "empty"
	StateUnresolved LevelState = "unresolved"
	StateResolving  LevelState = "resolving"
	StateResolved   LevelState = "resolved"
)

// Event input của Machine
type Event interface {
	isEvent()
}

// Hydrate nạp dữ liệu địa chỉ có sẵn (edit mode)
type Hydrate struct {
	Address models.AddressData
}

// Open người dùng mở selector
type Open struct {
	Level models.Level
}

// Select người dùng chọn một option theo code
type Select struct {
	Level models.Level
	Code  string
}

// Clear xóa giá trị của một cấp và các cấp con
type Clear struct {
	Level models.Level
}

// OptionsLoaded kết quả fetch thành công
type OptionsLoaded struct {
	Level   models.Level
	Gen     uint64
	Records []models.Record
}

// LoadFailed kết quả fetch thất bại
type LoadFailed struct {
	Level models.Level
	Gen   uint64
	Err   error
}

func (Hydrate) isEvent()       {}
func (Open) isEvent()          {}
func (Select) isEvent()        {}
func (Clear) isEvent()         {}
func (OptionsLoaded) isEvent() {}
func (LoadFailed) isEvent()    {}

// Fetch lệnh load option cho một cấp; Gen dùng để loại kết quả cũ
type Fetch struct {
	Level     models.Level
	ParentKey string
	Gen       uint64
}

// Resolution một cấp vừa được resolve tự động từ tên
type Resolution struct {
	Level models.Level
	Match matcher.Match
}

// Step kết quả của một lần Apply
type Step struct {
	Fetches     []Fetch
	Resolutions []Resolution
	Changed     bool // giá trị địa chỉ thay đổi
	Stale       bool // event bị bỏ qua vì generation đã cũ
}

type levelState struct {
	value     models.Selection
	options   []models.Record
	parentKey string
	status    LoadStatus
	gen       uint64
	matched   bool
	loadErr   string
}

// Machine reducer thuần cho form địa chỉ bốn cấp. Không có I/O và không
// an toàn cho truy cập đồng thời; Session lo phần đó.
type Machine struct {
	levels  [4]levelState
	details models.AddressData
	matcher *matcher.NameMatcher
}

// NewMachine tạo mới Machine
func NewMachine(m *matcher.NameMatcher) *Machine {
	if m == nil {
		m = matcher.NewNameMatcher(matcher.DefaultConfig())
	}
	machine := &Machine{matcher: m}
	for i := range machine.levels {
		machine.levels[i].status = LoadStatusIdle
	}
	return machine
}

func (m *Machine) level(l models.Level) *levelState {
	return &m.levels[int(l)-1]
}

// Apply áp dụng một event và trả về các lệnh cần chạy
func (m *Machine) Apply(ev Event) (Step, error) {
	var step Step

	switch e := ev.(type) {
	case Hydrate:
		m.hydrate(e.Address)
	case Open:
		if !e.Level.Valid() {
			return step, ErrInvalidLevel
		}
		if err := m.open(e.Level); err != nil {
			return step, err
		}
	case Select:
		if !e.Level.Valid() {
			return step, ErrInvalidLevel
		}
		if err := m.selectOption(e.Level, e.Code, &step); err != nil {
			return step, err
		}
	case Clear:
		if !e.Level.Valid() {
			return step, ErrInvalidLevel
		}
		m.clear(e.Level, &step)
	case OptionsLoaded:
		if !m.accepts(e.Level, e.Gen) {
			step.Stale = true
			return step, nil
		}
		ls := m.level(e.Level)
		ls.options = e.Records
		ls.status = LoadStatusLoaded
		ls.loadErr = ""
	case LoadFailed:
		if !m.accepts(e.Level, e.Gen) {
			step.Stale = true
			return step, nil
		}
		ls := m.level(e.Level)
		ls.options = nil
		ls.status = LoadStatusFailed
		ls.loadErr = "Failed to load " + e.Level.Plural()
	default:
		return step, fmt.Errorf("event không hỗ trợ: %T", ev)
	}

	m.settle(&step)
	return step, nil
}

// accepts chỉ nhận kết quả của lần fetch mới nhất đang chạy
func (m *Machine) accepts(l models.Level, gen uint64) bool {
	if !l.Valid() {
		return false
	}
	ls := m.level(l)
	return ls.status == LoadStatusLoading && ls.gen == gen
}

func (m *Machine) hydrate(addr models.AddressData) {
	for _, l := range models.Levels {
		ls := m.level(l)
		ls.value = addr.Get(l)
		ls.matched = false
		if ls.status == LoadStatusFailed {
			m.resetOptions(ls)
		}
	}
	m.details = addr
}

func (m *Machine) open(l models.Level) error {
	if _, ok := m.parentKey(l); !ok {
		return ErrLevelDisabled
	}
	ls := m.level(l)
	if ls.status == LoadStatusFailed {
		m.resetOptions(ls)
	}
	return nil
}

func (m *Machine) selectOption(l models.Level, code string, step *Step) error {
	if _, ok := m.parentKey(l); !ok {
		return ErrLevelDisabled
	}
	ls := m.level(l)
	if ls.status != LoadStatusLoaded {
		return ErrOptionsNotLoaded
	}

	rec, found := findOption(ls.options, code)
	if !found {
		return fmt.Errorf("%w: %s %q", ErrUnknownOption, l, code)
	}
	if ls.value.IsResolved() && ls.value.Code() == code {
		return nil
	}

	ls.value = models.Resolved(rec)
	ls.matched = true
	for child := l.Child(); child != 0; child = child.Child() {
		cs := m.level(child)
		cs.value = models.Selection{}
		m.resetOptions(cs)
	}
	step.Changed = true
	return nil
}

func (m *Machine) clear(l models.Level, step *Step) {
	for cur := l; cur != 0; cur = cur.Child() {
		ls := m.level(cur)
		if !ls.value.IsEmpty() {
			step.Changed = true
		}
		ls.value = models.Selection{}
		ls.matched = false
		if cur != l {
			m.resetOptions(ls)
		}
	}
}

// resetOptions bỏ danh sách option và vô hiệu hóa fetch đang chạy
func (m *Machine) resetOptions(ls *levelState) {
	ls.options = nil
	ls.parentKey = ""
	ls.status = LoadStatusIdle
	ls.loadErr = ""
	ls.matched = false
	ls.gen++
}

// parentKey key dùng để fetch option của cấp l; false nếu cấp cha chưa resolve
func (m *Machine) parentKey(l models.Level) (string, bool) {
	parent := l.Parent()
	if parent == 0 {
		return "", true
	}
	pv := m.level(parent).value
	if !pv.IsResolved() {
		return "", false
	}
	return pv.Code(), true
}

// settle duyệt từ trên xuống: match giá trị chưa resolve với option đã có,
// phát lệnh fetch cho cấp đã mở khóa nhưng chưa có option
func (m *Machine) settle(step *Step) {
	for _, l := range models.Levels {
		ls := m.level(l)
		key, enabled := m.parentKey(l)

		if !enabled {
			if ls.status != LoadStatusIdle || len(ls.options) > 0 || ls.loadErr != "" {
				m.resetOptions(ls)
			}
			ls.matched = false
			continue
		}

		if ls.status != LoadStatusIdle && ls.parentKey != key {
			m.resetOptions(ls)
		}

		switch ls.status {
		case LoadStatusIdle:
			ls.gen++
			ls.status = LoadStatusLoading
			ls.parentKey = key
			ls.options = nil
			ls.matched = false
			step.Fetches = append(step.Fetches, Fetch{Level: l, ParentKey: key, Gen: ls.gen})
		case LoadStatusLoaded:
			m.reconcile(l, ls, step)
		}
	}
}

// reconcile match một lần cho giá trị chưa resolve; giá trị đã resolve
// được bổ sung đầy đủ field từ bản ghi cùng code, code không thuộc cấp cha
// hiện tại thì hạ về Unresolved(name) và match lại
func (m *Machine) reconcile(l models.Level, ls *levelState, step *Step) {
	if ls.value.IsResolved() {
		current, _ := ls.value.Record()
		opt, found := findOption(ls.options, current.Code)
		switch {
		case !found:
			ls.value = models.Unresolved(current.Name)
			ls.matched = false
			m.demoteDescendants(l)
			step.Changed = true
		case opt != current:
			ls.value = models.Resolved(opt)
			step.Changed = true
			return
		default:
			return
		}
	}

	if !ls.value.IsUnresolved() || ls.matched {
		return
	}
	ls.matched = true
	match, ok := m.matcher.Match(ls.value.Name(), ls.options)
	if !ok {
		return
	}
	ls.value = models.Resolved(match.Record)
	step.Changed = true
	step.Resolutions = append(step.Resolutions, Resolution{Level: l, Match: match})
}

// demoteDescendants các cấp con đã resolve theo cha không hợp lệ được hạ về
// Unresolved(name) để kiểm tra lại khi cha resolve
func (m *Machine) demoteDescendants(l models.Level) {
	for child := l.Child(); child != 0; child = child.Child() {
		cs := m.level(child)
		if rec, ok := cs.value.Record(); ok {
			cs.value = models.Unresolved(rec.Name)
		}
		m.resetOptions(cs)
	}
}

func findOption(options []models.Record, code string) (models.Record, bool) {
	for _, opt := range options {
		if opt.Code == code {
			return opt, true
		}
	}
	return models.Record{}, false
}

// State trạng thái giá trị của một cấp
func (m *Machine) State(l models.Level) LevelState {
	if !l.Valid() {
		return StateEmpty
	}
	ls := m.level(l)
	switch {
	case ls.value.IsEmpty():
		return StateEmpty
	case ls.value.IsResolved():
		return StateResolved
	case ls.matched || ls.status == LoadStatusFailed:
		return StateUnresolved
	}

	parent := l.Parent()
	if parent == 0 {
		return StateResolving
	}
	switch m.State(parent) {
	case StateResolved, StateResolving:
		return StateResolving
	}
	return StateUnresolved
}

// Address giá trị địa chỉ hiện tại
func (m *Machine) Address() models.AddressData {
	addr := m.details
	for _, l := range models.Levels {
		addr.Set(l, m.level(l).value)
	}
	return addr
}

// Options danh sách option đã load của một cấp
func (m *Machine) Options(l models.Level) []models.Record {
	if !l.Valid() {
		return nil
	}
	return append([]models.Record(nil), m.level(l).options...)
}

// Status trạng thái load của một cấp
func (m *Machine) Status(l models.Level) LoadStatus {
	if !l.Valid() {
		return LoadStatusIdle
	}
	return m.level(l).status
}

// Enabled selector có được mở không
func (m *Machine) Enabled(l models.Level) bool {
	if !l.Valid() {
		return false
	}
	_, ok := m.parentKey(l)
	return ok
}

// Errors lỗi load theo field key (address.province, ...)
func (m *Machine) Errors() map[string]string {
	errs := make(map[string]string)
	for _, l := range models.Levels {
		if msg := m.level(l).loadErr; msg != "" {
			errs[l.FieldKey()] = msg
		}
	}
	return errs
}
