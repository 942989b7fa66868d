package service

import (
	"bytes"
	"encoding/json"

	"github.com/BrandonDHaskell/punchbridge/internal/punch/types"
)

// Reasons a whole message is ignored.  They double as metric labels.
const (
	ReasonInvalidJSON    = "invalid_json"
	ReasonNotObject      = "not_object"
	ReasonUnsupportedCmd = "unsupported_cmd"
	ReasonMissingRecord  = "missing_record"
)

// decodeEnvelope parses payload into an Envelope.  A non-empty reason means
// the message carries no punches and should be ignored.
func decodeEnvelope(payload []byte) (types.Envelope, string) {
	trimmed := bytes.TrimSpace(payload)
	if !json.Valid(trimmed) {
		return types.Envelope{}, ReasonInvalidJSON
	}

	var fields map[string]json.RawMessage
	if len(trimmed) == 0 || trimmed[0] != '{' || json.Unmarshal(trimmed, &fields) != nil {
		return types.Envelope{}, ReasonNotObject
	}

	env := types.Envelope{
		SN:        fields["sn"],
		CloudTime: fields["cloudtime"],
		Raw:       json.RawMessage(trimmed),
	}

	// A cmd that is not a string can never equal the sentinel.
	if err := json.Unmarshal(fields["cmd"], &env.Cmd); err != nil || env.Cmd != types.CmdSendLog {
		return env, ReasonUnsupportedCmd
	}

	rec := bytes.TrimSpace(fields["record"])
	if len(rec) == 0 || rec[0] != '[' {
		return env, ReasonMissingRecord
	}
	if err := json.Unmarshal(rec, &env.Records); err != nil {
		return env, ReasonMissingRecord
	}
	return env, ""
}
