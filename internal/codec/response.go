package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gateway/internal/rpc"
)

// springErrorBody is the SpringCloud wire shape for a failed call: a
// non-2xx status carrying this JSON object instead of a raw message.
type springErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResponseCodec builds the protocol-specific HTTP response a server
// dispatch writes, and parses an incoming HTTP response into a result or
// typed error on the client side.
type ResponseCodec struct {
	json     *JSONCodec
	grpcResp *GRPCResponseCodec
}

// NewResponseCodec returns the stateless response codec.
func NewResponseCodec() *ResponseCodec {
	return &ResponseCodec{json: NewJSONCodec(), grpcResp: NewGRPCResponseCodec()}
}

// EncodeServerResponse writes inv's result or error to w, selecting
// content-type from inv.Codec.
func (c *ResponseCodec) EncodeServerResponse(w http.ResponseWriter, inv *rpc.Invocation) error {
	switch inv.Codec {
	case rpc.CodecGRPC:
		return c.encodeGRPC(w, inv)
	default:
		return c.encodeJSON(w, inv)
	}
}

func (c *ResponseCodec) encodeJSON(w http.ResponseWriter, inv *rpc.Invocation) error {
	w.Header().Set("content-type", "application/json")

	result, ok := inv.Result()
	if ok {
		body, err := c.json.Encode([]string{result})
		if err != nil {
			return err
		}
		w.WriteHeader(http.StatusOK)
		_, writeErr := w.Write(body)
		return writeErr
	}

	err := inv.Err()
	if rpc.IsNull(err) {
		w.WriteHeader(http.StatusOK)
		w.Header().Set("fusen-status", "90")
		_, writeErr := w.Write([]byte("null"))
		return writeErr
	}

	status := rpc.GRPCStatus(err)
	w.Header().Set("fusen-status", strconv.Itoa(status))
	w.WriteHeader(statusCodeFor(err))

	if inv.Protocol == rpc.ProtocolSpringCloud {
		body, encErr := json.Marshal(springErrorBody{Code: status, Message: errorMessage(err)})
		if encErr != nil {
			return encErr
		}
		_, writeErr := w.Write(body)
		return writeErr
	}

	_, writeErr := w.Write([]byte(errorMessage(err)))
	return writeErr
}

func (c *ResponseCodec) encodeGRPC(w http.ResponseWriter, inv *rpc.Invocation) error {
	w.Header().Set("content-type", "application/grpc")
	w.Header().Set("Trailer", "Grpc-Status, Grpc-Message")
	w.WriteHeader(http.StatusOK)

	status := "0"
	message := "success"

	result, ok := inv.Result()
	if ok {
		frame, err := c.grpcResp.Encode(NewTripleResponse(result))
		if err != nil {
			return err
		}
		if _, writeErr := w.Write(frame); writeErr != nil {
			return writeErr
		}
	} else {
		rpcErr := inv.Err()
		status = strconv.Itoa(rpc.GRPCStatus(rpcErr))
		message = errorMessage(rpcErr)
	}

	w.Header().Set("Grpc-Status", status)
	w.Header().Set("Grpc-Message", message)
	return nil
}

// DecodeClientResponse parses resp into a result string or typed error,
// A non-2xx status is an error; otherwise frames are drained
// until trailers appear (or the body ends), grpc-status in any trailers
// selects the error kind, and the first data frame is decoded with the
// codec named by content-type (defaulting to JSON).
func (c *ResponseCodec) DecodeClientResponse(resp *http.Response) (string, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeJSONErrorResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", rpc.Info("read response body: " + err.Error())
	}

	trailer := trailerHeader(resp.Trailer)
	if len(trailer) > 0 {
		status := trailer.Get("grpc-status")
		if status == "" {
			return "", rpc.Info("error trailers")
		}
		if status == "0" {
			// falls through to decode the data frame below
		} else {
			message := trailer.Get("grpc-message")
			if message == "" {
				message = "grpc-status=" + status
			}
			n, convErr := strconv.Atoi(status)
			if convErr != nil {
				return "", rpc.Info(message)
			}
			return "", rpc.FromGRPCStatus(n, message)
		}
	}

	if len(body) == 0 {
		return "", rpc.Info("empty body")
	}

	contentType := resp.Header.Get("content-type")
	codecType := rpc.CodecJSON
	if strings.HasPrefix(contentType, "application/grpc") {
		codecType = rpc.CodecGRPC
	}

	switch codecType {
	case rpc.CodecGRPC:
		w, err := c.grpcResp.Decode([]rpc.Frame{rpc.DataFrame(body)})
		if err != nil {
			return "", err
		}
		return string(w.Data), nil
	default:
		if string(body) == "null" {
			return "", rpc.Null()
		}
		args, err := c.json.Decode([]rpc.Frame{rpc.DataFrame(body)})
		if err != nil {
			return "", err
		}
		return args[0], nil
	}
}

func trailerHeader(h http.Header) rpc.Header {
	if len(h) == 0 {
		return nil
	}
	return headerFrom(h)
}

// decodeJSONErrorResponse recovers the RPC error kind from a non-2xx
// Fusen or SpringCloud response: a SpringCloud body decodes straight to
// {code, message}; a Fusen response carries the same mapping in the
// fusen-status header instead, since its body is the raw error string.
func decodeJSONErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var springErr springErrorBody
	if jsonErr := json.Unmarshal(body, &springErr); jsonErr == nil && springErr.Message != "" {
		return rpc.FromGRPCStatus(springErr.Code, springErr.Message)
	}

	if status := resp.Header.Get("fusen-status"); status != "" {
		if n, convErr := strconv.Atoi(status); convErr == nil {
			return rpc.FromGRPCStatus(n, string(body))
		}
	}

	return rpc.Info(fmt.Sprintf("err code : %d", resp.StatusCode))
}

func statusCodeFor(err error) int {
	if rpc.IsNotFind(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
