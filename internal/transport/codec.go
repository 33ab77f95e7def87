// Package transport wires this core's Active role handlers onto
// google.golang.org/grpc without a protoc-generated stub: outbound calls
// and the inbound service descriptor both ride a small JSON encoding.Codec
// instead of generated protobuf messages (see DESIGN.md for why protobuf
// itself was dropped).
package transport

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is registered with grpc's encoding package and selected per
// call via grpc.CallContentSubtype / negotiated by the server.
const CodecName = "raftjson"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
