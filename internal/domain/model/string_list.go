package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// 画像URLの一覧。JSON配列のtextで保存するが、古い行の単一文字列も読める
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = StringList{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		*s = StringList{}
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var values []string
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return err
		}
		*s = values
		return nil
	}
	*s = StringList{raw}
	return nil
}

// JSONでも配列と単一文字列の両方を受ける
func (s *StringList) UnmarshalJSON(b []byte) error {
	var values []string
	if err := json.Unmarshal(b, &values); err == nil {
		*s = values
		return nil
	}
	var single string
	if err := json.Unmarshal(b, &single); err != nil {
		return err
	}
	single = strings.TrimSpace(single)
	if single == "" {
		*s = StringList{}
		return nil
	}
	*s = StringList{single}
	return nil
}

func (s StringList) First() string {
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
