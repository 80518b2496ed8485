package domain

import (
	"database/sql/driver"

	"github.com/goccy/go-json"
)

// ProviderKeys maps a provider to its native identifier for a media record.
type ProviderKeys map[Provider]string

func (k ProviderKeys) Value() (driver.Value, error) {
	if len(k) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(k)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (k *ProviderKeys) Scan(value interface{}) error {
	if value == nil {
		*k = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	if len(data) == 0 || string(data) == "null" {
		*k = nil
		return nil
	}

	return json.Unmarshal(data, k)
}
