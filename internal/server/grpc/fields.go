package grpc

import (
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// errBadRequest marks malformed request fields.
var errBadRequest = errors.New("invalid request")

func stringField(in *structpb.Struct, name string) (string, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", errBadRequest, name)
	}
	return s.StringValue, nil
}

// bytesField decodes a base64 field, accepting standard and URL alphabets
// with or without padding.
func bytesField(in *structpb.Struct, name string) ([]byte, error) {
	s, err := stringField(in, name)
	if err != nil {
		return nil, err
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s must be base64", errBadRequest, name)
}

func stringsToValues(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
