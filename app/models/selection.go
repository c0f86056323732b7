package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SelectionState trạng thái giá trị của một cấp
type SelectionState string

// SelectionState constants
const (
	SelectionEmpty      SelectionState = "empty"
	SelectionUnresolved SelectionState = "unresolved"
	SelectionResolved   SelectionState = "resolved"
)

// Selection giá trị của một cấp địa chỉ: rỗng, chỉ có tên (chưa resolve)
// hoặc bản ghi PSGC thật. Zero value là rỗng.
type Selection struct {
	state  SelectionState
	name   string
	record Record
}

// Unresolved tạo selection chỉ có tên; tên rỗng cho ra selection rỗng
func Unresolved(name string) Selection {
	name = strings.TrimSpace(name)
	if name == "" {
		return Selection{}
	}
	return Selection{state: SelectionUnresolved, name: name}
}

// Resolved tạo selection từ bản ghi PSGC
func Resolved(record Record) Selection {
	return Selection{state: SelectionResolved, name: record.Name, record: record}
}

// State trả về trạng thái selection
func (s Selection) State() SelectionState {
	if s.state == "" {
		return SelectionEmpty
	}
	return s.state
}

// IsEmpty kiểm tra selection rỗng
func (s Selection) IsEmpty() bool { return s.State() == SelectionEmpty }

// IsUnresolved kiểm tra selection chỉ có tên
func (s Selection) IsUnresolved() bool { return s.state == SelectionUnresolved }

// IsResolved kiểm tra selection đã gắn bản ghi PSGC
func (s Selection) IsResolved() bool { return s.state == SelectionResolved }

// Name tên hiển thị
func (s Selection) Name() string { return s.name }

// Code mã PSGC, rỗng nếu chưa resolve
func (s Selection) Code() string {
	if !s.IsResolved() {
		return ""
	}
	return s.record.Code
}

// Record trả về bản ghi nếu đã resolve
func (s Selection) Record() (Record, bool) {
	if !s.IsResolved() {
		return Record{}, false
	}
	return s.record, true
}

// Equal so sánh hai selection
func (s Selection) Equal(other Selection) bool {
	if s.State() != other.State() {
		return false
	}
	switch s.State() {
	case SelectionResolved:
		return s.record == other.record
	case SelectionUnresolved:
		return s.name == other.name
	}
	return true
}

// String dùng cho log
func (s Selection) String() string {
	switch s.State() {
	case SelectionResolved:
		return fmt.Sprintf("resolved(%s %s)", s.record.Code, s.record.Name)
	case SelectionUnresolved:
		return fmt.Sprintf("unresolved(%s)", s.name)
	}
	return "empty"
}

type selectionJSON struct {
	State SelectionState `json:"state,omitempty"`
	Record
}

// MarshalJSON serialize selection với field state tường minh
func (s Selection) MarshalJSON() ([]byte, error) {
	switch s.State() {
	case SelectionResolved:
		return json.Marshal(selectionJSON{State: SelectionResolved, Record: s.record})
	case SelectionUnresolved:
		return json.Marshal(selectionJSON{State: SelectionUnresolved, Record: Record{Name: s.name}})
	}
	return []byte("null"), nil
}

// UnmarshalJSON chấp nhận cả format có state lẫn format cũ {code, name},
// trong đó code rỗng hoặc code == name nghĩa là chưa resolve
func (s *Selection) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = Selection{}
		return nil
	}

	// Cho phép gửi thẳng một chuỗi tên
	if trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*s = Unresolved(name)
		return nil
	}

	var raw selectionJSON
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("selection không hợp lệ: %w", err)
	}
	raw.Code = strings.TrimSpace(raw.Code)
	raw.Name = strings.TrimSpace(raw.Name)

	switch raw.State {
	case SelectionEmpty:
		*s = Selection{}
	case SelectionUnresolved:
		*s = Unresolved(raw.Name)
	case SelectionResolved:
		if raw.Code == "" {
			return fmt.Errorf("selection resolved thiếu code")
		}
		*s = Resolved(raw.Record)
	case "":
		switch {
		case raw.Code == "" && raw.Name == "":
			*s = Selection{}
		case raw.Code == "" || raw.Code == raw.Name:
			*s = Unresolved(raw.Name)
		default:
			*s = Resolved(raw.Record)
		}
	default:
		return fmt.Errorf("state không hợp lệ: %q", raw.State)
	}
	return nil
}
