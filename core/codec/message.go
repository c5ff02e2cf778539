package codec

import "encoding/json"

// EncodeMessage serializes an application-level value to the byte string
// that gets split into fragments. JSON is the wire-format decision for this
// protocol: it keeps the application vocabulary (Query/Response) easy to
// extend without a schema compiler, at the cost of density.
func EncodeMessage(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeMessage deserializes a reassembled fragment payload back into an
// application-level value. A failure here is a local, non-fatal error: the
// receiver logs it and abandons the session rather than emitting a NACK.
func DecodeMessage(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
