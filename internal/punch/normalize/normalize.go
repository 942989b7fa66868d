// Package normalize turns one inbound device event into a store.PunchRecord.
//
// Device firmware is loose about types: numbers arrive as strings, optional
// readings are missing or null, and some terminals report no time at all.
// Every field is coerced best-effort; nothing here returns an error.
package normalize

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/BrandonDHaskell/punchbridge/internal/punch/store"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/types"
)

// TimeLayout is used for every timestamp the bridge generates itself.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Normalize builds the record for one event of env.  deviceSN wins over the
// envelope's own sn; now supplies received_at and the last-resort punch_time.
func Normalize(deviceSN string, env types.Envelope, event json.RawMessage, now time.Time) store.PunchRecord {
	fields := eventFields(event)
	stamp := now.UTC().Format(TimeLayout)

	punchTime, ok := Text(fields["time"])
	if !ok {
		punchTime, ok = Text(env.CloudTime)
	}
	if !ok {
		punchTime = stamp
	}

	rec := store.PunchRecord{
		EnrollID:   EnrollID(fields["enrollid"]),
		PunchTime:  punchTime,
		InOut:      ParseInt(fields["inout"]).Ptr(),
		Mode:       ParseInt(fields["mode"]).Ptr(),
		Event:      ParseInt(fields["event"]).Ptr(),
		VerifyMode: ParseInt(fields["verifymode"]).Ptr(),
		Temp:       ParseFloat(fields["temp"]).Ptr(),
		RawJSON:    RawJSON(env.Raw, event),
		ReceivedAt: stamp,
	}

	if deviceSN != "" {
		rec.DeviceSN = &deviceSN
	} else if sn, ok := Text(env.SN); ok {
		rec.DeviceSN = &sn
	}

	if img, ok := Text(fields["image"]); ok {
		rec.ImageBase64 = &img
	}

	return rec
}

// eventFields returns nil for anything that is not a JSON object, which
// leaves every field absent (and enrollid 0).
func eventFields(event json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(event, &fields); err != nil {
		return nil
	}
	return fields
}

// archive is the raw_json document: the whole envelope plus the one event.
type archive struct {
	Msg json.RawMessage `json:"msg"`
	Rec json.RawMessage `json:"rec"`
}

// RawJSON archives msg and rec as {"msg":...,"rec":...}.  Both are kept as
// sent (compacted, no HTML escaping) so key order and number spelling survive.
func RawJSON(msg, rec json.RawMessage) string {
	a := archive{Msg: orNull(msg), Rec: orNull(rec)}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(a); err != nil {
		// Only reachable with invalid JSON input; keep the bytes anyway.
		return `{"msg":` + string(a.Msg) + `,"rec":` + string(a.Rec) + `}`
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
