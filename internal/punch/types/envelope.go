package types

import "encoding/json"

// CmdSendLog is the command terminals use to upload punch records.  Every
// other command on the topic (heartbeats, enrollment sync, ...) is ignored.
const CmdSendLog = "sendlog"

// Envelope is a decoded inbound device message:
//
//	{ "cmd": string, "sn": string?, "cloudtime": string?, "record": [ event, ... ] }
//
// Loosely typed fields stay as raw JSON so normalization can coerce them and
// the original bytes can be archived unchanged.
type Envelope struct {
	Cmd       string
	SN        json.RawMessage
	CloudTime json.RawMessage
	Records   []json.RawMessage

	// Raw is the full message exactly as received.
	Raw json.RawMessage
}
