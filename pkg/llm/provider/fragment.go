package provider

import (
	"encoding/json"
	"errors"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeFragment unmarshals one upstream JSON fragment into v. Fragments that
// fail strict decoding get one repair attempt (unterminated strings, trailing
// commas, truncated objects) before being rejected with an UpstreamProtocolError.
// Callers skip rejected fragments and keep reading.
func DecodeFragment(providerName, data string, v any) error {
	err := json.Unmarshal([]byte(data), v)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(data)
	if repairErr != nil {
		return &UpstreamProtocolError{Provider: providerName, Data: data, Err: errors.Join(err, repairErr)}
	}

	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return &UpstreamProtocolError{Provider: providerName, Data: data, Err: err}
	}

	return nil
}
