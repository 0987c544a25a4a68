package assessment

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Value is a raw answer: a number for likert and scenario questions, an option
// key for forced-choice questions. The zero Value is "no answer".
type Value struct {
	num     int
	choice  string
	numeric bool
}

func Numeric(n int) Value { return Value{num: n, numeric: true} }

func Choice(key string) Value { return Value{choice: strings.TrimSpace(key)} }

// Int returns the numeric answer. Option keys never count as numeric, even "3".
func (v Value) Int() (int, bool) {
	return v.num, v.numeric
}

func (v Value) IsZero() bool {
	return !v.numeric && v.choice == ""
}

// Key returns the lookup key into a question's option mappings.
func (v Value) Key() string {
	if v.numeric {
		return strconv.Itoa(v.num)
	}
	return v.choice
}

func (v Value) String() string {
	if v.IsZero() {
		return "<none>"
	}
	return v.Key()
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.numeric:
		return []byte(strconv.Itoa(v.num)), nil
	case v.choice != "":
		return json.Marshal(v.choice)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(blob []byte) error {
	blob = bytes.TrimSpace(blob)
	if len(blob) == 0 || bytes.Equal(blob, []byte("null")) {
		*v = Value{}
		return nil
	}
	if blob[0] == '"' {
		var s string
		if err := json.Unmarshal(blob, &s); err != nil {
			return err
		}
		*v = Choice(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(blob, &f); err != nil {
		return fmt.Errorf("response value must be a number or string: %w", err)
	}
	if f != float64(int(f)) {
		return fmt.Errorf("response value %v is not an integer", f)
	}
	*v = Numeric(int(f))
	return nil
}
