package codec

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"gateway/internal/rpc"
)

// RequestCodec builds the protocol-specific HTTP request a client
// invocation sends, and parses an incoming HTTP request into an
// Invocation Context on the server side.
//
// SpringCloud's server-side interface resolution is table-driven: the
// path's trailing segment names the method, and the owning interface is
// looked up in a router table registered at bind time.
type RequestCodec struct {
	json    *JSONCodec
	grpcReq *GRPCRequestCodec

	mu           sync.RWMutex
	springRoutes map[string]rpc.ServiceIdentity
}

// NewRequestCodec returns a RequestCodec with an empty SpringCloud router
// table.
func NewRequestCodec() *RequestCodec {
	return &RequestCodec{
		json:         NewJSONCodec(),
		grpcReq:      NewGRPCRequestCodec(),
		springRoutes: make(map[string]rpc.ServiceIdentity),
	}
}

// BindSpringRoute registers the service identity a SpringCloud method name
// resolves to, for server-side decode.
func (c *RequestCodec) BindSpringRoute(method string, service rpc.ServiceIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.springRoutes[method] = service
}

// EncodeClientRequest builds the outbound *http.Request for inv, targeting
// baseURL (scheme://host:port, no path).
func (c *RequestCodec) EncodeClientRequest(inv *rpc.Invocation, baseURL string) (*http.Request, error) {
	var path, contentType string
	var body []byte
	var err error

	switch inv.Protocol {
	case rpc.ProtocolFusen:
		path = fmt.Sprintf("/%s/%s", inv.Service.String(), inv.Method)
		contentType = "application/json"
		body, err = c.json.Encode(inv.Args)
	case rpc.ProtocolDubbo:
		path = fmt.Sprintf("/%s/%s", inv.Service.String(), inv.Method)
		contentType = "application/grpc"
		w := NewTripleRequest(inv.Args, nil)
		body, err = c.grpcReq.Encode(w)
	case rpc.ProtocolSpringCloud:
		path = "/" + inv.Method
		contentType = "application/json"
		body, err = c.json.Encode(inv.Args)
	default:
		return nil, rpc.Info("unknown protocol: " + string(inv.Protocol))
	}
	if err != nil {
		return nil, err
	}

	req, reqErr := http.NewRequestWithContext(inv.Context(), http.MethodPost, baseURL+path, newBody(body))
	if reqErr != nil {
		return nil, rpc.Info("build request: " + reqErr.Error())
	}
	req.Header.Set("content-type", contentType)
	if inv.Service.Version != "" {
		req.Header.Set("tri-service-version", inv.Service.Version)
	}
	if inv.Service.Group != "" {
		req.Header.Set("tri-service-group", inv.Service.Group)
	}
	if inv.RequestID != "" {
		req.Header.Set("x-request-id", inv.RequestID)
	}
	for k, vs := range inv.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// DecodeServerRequest parses an incoming HTTP request into an Invocation
// Context, selecting the body codec from content-type and the handler
// identity from the path shape.
func (c *RequestCodec) DecodeServerRequest(r *http.Request) (*rpc.Invocation, error) {
	contentType := r.Header.Get("content-type")
	isGRPC := strings.HasPrefix(contentType, "application/grpc")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, rpc.Info("read request body: " + err.Error())
	}

	service, method, err := c.resolvePath(r.URL.Path, isGRPC)
	if err != nil {
		return nil, err
	}

	inv := rpc.New(r.Context(), service, method)
	inv.Headers = headerFrom(r.Header)
	inv.RequestID = r.Header.Get("x-request-id")
	if v := r.Header.Get("tri-service-version"); v != "" {
		inv.Service.Version = v
	}
	if v := r.Header.Get("tri-service-group"); v != "" {
		inv.Service.Group = v
	}

	if isGRPC {
		inv.Codec = rpc.CodecGRPC
		inv.Protocol = rpc.ProtocolDubbo
		w, err := c.grpcReq.Decode([]rpc.Frame{rpc.DataFrame(body)})
		if err != nil {
			return nil, err
		}
		inv.Args = w.StringArgs()
		return inv, nil
	}

	inv.Codec = rpc.CodecJSON
	if _, ok := c.springRoutes[method]; ok {
		inv.Protocol = rpc.ProtocolSpringCloud
	} else {
		inv.Protocol = rpc.ProtocolFusen
	}
	args, err := c.json.Decode([]rpc.Frame{rpc.DataFrame(body)})
	if err != nil {
		return nil, err
	}
	inv.Args = args
	return inv, nil
}

// resolvePath splits a request path into (interface, method). For
// Fusen/Dubbo the path is "/{interface}/{method}" (Dubbo prefixes the
// interface with its package). For SpringCloud the method is the trailing
// segment and the interface is resolved from the router table.
func (c *RequestCodec) resolvePath(path string, isGRPC bool) (rpc.ServiceIdentity, string, error) {
	trimmed := strings.TrimPrefix(path, "/")
	segments := strings.Split(trimmed, "/")

	if len(segments) >= 2 {
		iface := segments[len(segments)-2]
		method := segments[len(segments)-1]
		pkg := ""
		if idx := strings.LastIndex(iface, "."); idx >= 0 {
			pkg, iface = iface[:idx], iface[idx+1:]
		}
		return rpc.ServiceIdentity{Package: pkg, Interface: iface}, method, nil
	}

	if isGRPC {
		return rpc.ServiceIdentity{}, "", rpc.NotFind("malformed grpc path: " + path)
	}

	method := segments[len(segments)-1]
	c.mu.RLock()
	service, ok := c.springRoutes[method]
	c.mu.RUnlock()
	if !ok {
		return rpc.ServiceIdentity{}, "", rpc.NotFind("no route bound for method: " + method)
	}
	return service, method, nil
}

func headerFrom(h http.Header) rpc.Header {
	out := rpc.NewHeader()
	for k, v := range h {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func newBody(b []byte) io.Reader {
	if b == nil {
		return nil
	}
	return strings.NewReader(string(b))
}
