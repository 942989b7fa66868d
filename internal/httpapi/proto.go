package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"google.golang.org/protobuf/proto"
)

const protobufContentType = "application/x-protobuf"

// wantsProtobuf returns true if the client asked for a protobuf body via
// Accept.  Anything else gets JSON.
func wantsProtobuf(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, _ := strings.Cut(part, ";")
		switch strings.ToLower(strings.TrimSpace(mt)) {
		case protobufContentType, "application/protobuf":
			return true
		}
	}
	return false
}

// writeProto marshals msg and writes it with the given HTTP status.
func writeProto(c *gin.Context, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		// Fall back to a plain-text error if marshalling fails.
		c.String(http.StatusInternalServerError, "proto marshal error")
		return
	}
	c.Data(status, protobufContentType, data)
}

// render writes v as JSON, or as a google.protobuf.Struct when negotiated.
func render(c *gin.Context, status int, v any) {
	if !wantsProtobuf(c.Request) {
		c.JSON(status, v)
		return
	}
	msg, err := toStruct(v)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal_error")
		return
	}
	writeProto(c, status, msg)
}
