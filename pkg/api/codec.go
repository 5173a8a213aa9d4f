// Package api holds the request and response messages of the susu RPC
// services and the codec that carries them.
package api

import "encoding/json"

// JSONCodec is a connect.Codec for plain Go message structs. It registers
// under the "json" name, so Connect clients and handlers exchange
// application/json bodies.
type JSONCodec struct{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
