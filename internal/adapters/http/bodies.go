package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type signupBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createRequestBody struct {
	SoftwareID flexUint `json:"softwareId"`
	AccessType string   `json:"accessType"`
	Reason     string   `json:"reason"`
}

type updateStatusBody struct {
	Status string `json:"status"`
}

type softwareBody struct {
	Name         *string     `json:"name"`
	Description  *string     `json:"description"`
	AccessLevels *StringList `json:"accessLevels"`
}

// StringList decodes either a JSON string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("accessLevels must be a string or a list of strings")
	}
	*l = many
	return nil
}

// flexUint accepts a number or a numeric string. Zero means absent.
type flexUint uint

func (f *flexUint) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("softwareId must be numeric")
	}
	*f = flexUint(v)
	return nil
}
