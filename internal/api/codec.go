// Package api defines the wire types of the spendwise RPC services and the
// Connect handler and client constructors for them.
//
// Messages are plain Go structs encoded as JSON, so the package carries its
// own connect.Codec instead of relying on generated protobuf code. Procedure
// paths follow the Connect convention /spendwise.v1.<Service>/<Method>.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Package is the RPC package prefix of every procedure.
const Package = "spendwise.v1"

// Codec encodes messages as JSON.
type Codec struct {
	name string
}

// JSON is the codec clients use. Content type application/json.
var JSON = Codec{name: "json"}

// JSONCharset accepts clients that send application/json; charset=utf-8.
var JSONCharset = Codec{name: "json; charset=utf-8"}

func (c Codec) Name() string {
	return c.name
}

func (c Codec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (c Codec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("decode %T: %w", message, err)
	}
	return nil
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(JSON), connect.WithCodec(JSONCharset)}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(JSON)}, opts...)
}

// route pairs a procedure path with its handler.
type route struct {
	procedure string
	handler   http.Handler
}

func unary[Req, Res any](procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) route {
	return route{procedure: procedure, handler: connect.NewUnaryHandler[Req, Res](procedure, fn, opts...)}
}

// serviceHandler dispatches on the request path and returns the prefix to
// mount it under.
func serviceHandler(service string, routes ...route) (string, http.Handler) {
	byPath := make(map[string]http.Handler, len(routes))
	for _, r := range routes {
		byPath[r.procedure] = r.handler
	}
	prefix := "/" + service + "/"
	return prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := byPath[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

func newClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](httpClient, strings.TrimRight(baseURL, "/")+procedure, opts...)
}
