package dur

import (
	"encoding"
	"encoding/json"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from "1m30s" style strings or from integer nanoseconds.
type Duration time.Duration

func (T Duration) Duration() time.Duration {
	return time.Duration(T)
}

func (T Duration) String() string {
	return time.Duration(T).String()
}

func (T *Duration) UnmarshalJSON(bytes []byte) error {
	// try as string
	var str string
	if err := json.Unmarshal(bytes, &str); err == nil {
		*(*time.Duration)(T), err = time.ParseDuration(str)
		return err
	}

	// try num
	var num int64
	if err := json.Unmarshal(bytes, &num); err != nil {
		return err
	}
	*T = Duration(num)

	return nil
}

func (T Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(T.String())
}

func (T *Duration) UnmarshalText(text []byte) error {
	d, err := time.ParseDuration(string(text))
	if err == nil {
		*T = Duration(d)
		return nil
	}

	num, numErr := strconv.ParseInt(string(text), 10, 64)
	if numErr != nil {
		return err
	}
	*T = Duration(num)
	return nil
}

func (T Duration) MarshalText() ([]byte, error) {
	return []byte(T.String()), nil
}

func (T *Duration) UnmarshalYAML(value *yaml.Node) error {
	return T.UnmarshalText([]byte(value.Value))
}

var _ json.Unmarshaler = (*Duration)(nil)
var _ json.Marshaler = Duration(0)
var _ encoding.TextUnmarshaler = (*Duration)(nil)
var _ encoding.TextMarshaler = Duration(0)
var _ yaml.Unmarshaler = (*Duration)(nil)
