package httpapi

import (
	"encoding/json"

	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct converts a response document into a google.protobuf.Struct with
// exactly the keys and values of its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
