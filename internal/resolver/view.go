package resolver

import "github.com/psgc-resolver/app/models"

// LevelView trạng thái hiển thị của một selector
type LevelView struct {
	Level   models.Level     `json:"level"`
	State   LevelState       `json:"state"`
	Value   models.Selection `json:"value"`
	Status  LoadStatus       `json:"status"`
	Enabled bool             `json:"enabled"`
	Options []models.Record  `json:"options"`
	Error   string           `json:"error,omitempty"`
}

// View snapshot toàn bộ form
type View struct {
	Address models.AddressData `json:"address"`
	Levels  []LevelView        `json:"levels"`
	Errors  map[string]string  `json:"errors,omitempty"`
}

// Level lấy view của một cấp
func (v View) Level(l models.Level) LevelView {
	for _, lv := range v.Levels {
		if lv.Level == l {
			return lv
		}
	}
	return LevelView{Level: l, State: StateEmpty, Status: LoadStatusIdle}
}

// Complete tất cả bốn cấp đã resolve
func (v View) Complete() bool {
	return v.Address.IsComplete()
}

// View dựng snapshot từ trạng thái hiện tại
func (m *Machine) View() View {
	view := View{
		Address: m.Address(),
		Levels:  make([]LevelView, 0, len(models.Levels)),
		Errors:  m.Errors(),
	}
	for _, l := range models.Levels {
		ls := m.level(l)
		options := m.Options(l)
		if options == nil {
			options = []models.Record{}
		}
		view.Levels = append(view.Levels, LevelView{
			Level:   l,
			State:   m.State(l),
			Value:   ls.value,
			Status:  ls.status,
			Enabled: m.Enabled(l),
			Options: options,
			Error:   ls.loadErr,
		})
	}
	return view
}
