package response

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/protocol/restjson"
	"github.com/aws/smithy-go"
	smithyxml "github.com/aws/smithy-go/encoding/xml"
	json "github.com/goccy/go-json"
	"github.com/gurre/awscore/protocol"
)

// UnknownErrorCode is reported when an error body carries no recognisable
// code.
const UnknownErrorCode = "UnknownError"

// ServiceError is an error returned by the remote service.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	RequestID  string
	Body       []byte // raw error body
}

var _ smithy.APIError = (*ServiceError)(nil)

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("service error %s (status %d)", e.Code, e.HTTPStatus)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += ", request id " + e.RequestID
	}
	return msg
}

func (e *ServiceError) ErrorCode() string    { return e.Code }
func (e *ServiceError) ErrorMessage() string { return e.Message }

// ErrorFault maps 4xx statuses to client faults and 5xx to server faults.
func (e *ServiceError) ErrorFault() smithy.ErrorFault {
	switch {
	case e.HTTPStatus >= 400 && e.HTTPStatus < 500:
		return smithy.FaultClient
	case e.HTTPStatus >= 500:
		return smithy.FaultServer
	}
	return smithy.FaultUnknown
}

var requestIDHeaders = []string{"X-Amzn-Requestid", "X-Amz-Request-Id"}

func requestIDFromHeader(h http.Header) string {
	for _, k := range requestIDHeaders {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// parseServiceError reads the error code and message out of resp. Bodies
// that carry neither become UnknownError with the body preserved.
func parseServiceError(p protocol.Protocol, resp *Response) *ServiceError {
	e := &ServiceError{
		HTTPStatus: resp.StatusCode,
		RequestID:  requestIDFromHeader(resp.Header),
		Body:       resp.Body,
	}
	if p.IsJSON() {
		parseJSONError(e, resp)
	} else {
		parseXMLError(e, resp.Body)
	}

	if e.Code == "" {
		if len(bytes.TrimSpace(resp.Body)) == 0 && resp.StatusCode >= 300 {
			// HEAD and some DELETE errors arrive without a body.
			e.Code = strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "")
		}
		if e.Code == "" {
			e.Code = UnknownErrorCode
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func jsonErrorFields(body []byte) map[string]json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil
	}
	return fields
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func parseJSONError(e *ServiceError, resp *Response) {
	fields := jsonErrorFields(resp.Body)
	code := resp.Header.Get("X-Amzn-Errortype")
	if code == "" {
		code = firstString(fields, "__type", "code", "Code")
	}
	if code != "" {
		e.Code = restjson.SanitizeErrorCode(code)
	}
	e.Message = firstString(fields, "message", "Message", "errorMessage")
}

func parseXMLError(e *ServiceError, body []byte) {
	root, err := smithyxml.FetchRootElement(xml.NewDecoder(bytes.NewReader(body)))
	if err != nil {
		return
	}
	var bare bool
	switch root.Name.Local {
	case "ErrorResponse":
	case "Error":
		bare = true
	default:
		return
	}
	c, err := smithyxml.GetErrorResponseComponents(bytes.NewReader(body), bare)
	if err != nil {
		return
	}
	e.Code = c.Code
	e.Message = c.Message
	if e.RequestID == "" {
		var meta struct {
			RequestID string `xml:"RequestId"`
		}
		if xml.Unmarshal(body, &meta) == nil {
			e.RequestID = meta.RequestID
		}
	}
}

// hasJSONErrorType reports whether a 2xx JSON-RPC body is an error in
// disguise.
func hasJSONErrorType(body []byte) bool {
	_, ok := jsonErrorFields(body)["__type"]
	return ok
}

// isXMLErrorResponse reports whether a 2xx Query body is an error document.
func isXMLErrorResponse(body []byte) bool {
	root, err := smithyxml.FetchRootElement(xml.NewDecoder(bytes.NewReader(body)))
	return err == nil && root.Name.Local == "ErrorResponse"
}
