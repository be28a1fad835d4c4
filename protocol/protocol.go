// Package protocol enumerates the wire protocols an AWS service can speak and
// the per-protocol conventions that do not depend on shape metadata.
package protocol

import (
	"fmt"
	"strings"
)

// Protocol selects body encoding, content type and how the operation name
// travels.
type Protocol int

const (
	Query Protocol = iota + 1
	JSON
	RESTJSON
	RESTXML
)

// ErrUnknownProtocol is returned by Parse for unrecognised names.
var ErrUnknownProtocol = fmt.Errorf("unknown protocol")

const (
	ContentTypeForm        = "application/x-www-form-urlencoded; charset=utf-8"
	ContentTypeRESTJSON    = "application/json"
	ContentTypeXML         = "application/xml"
	ContentTypeOctetStream = "binary/octet-stream"

	DefaultJSONVersion = "1.0"
)

func (p Protocol) String() string {
	switch p {
	case Query:
		return "query"
	case JSON:
		return "json"
	case RESTJSON:
		return "rest-json"
	case RESTXML:
		return "rest-xml"
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

// Parse accepts the names printed by String plus the model spellings used in
// service definitions (awsJson1_0, restXml, ...).
func Parse(s string) (Protocol, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(s, "-", ""), "_", "")) {
	case "query", "awsquery", "ec2":
		return Query, nil
	case "json", "awsjson", "awsjson10", "awsjson11":
		return JSON, nil
	case "restjson", "restjson1", "awsrestjson":
		return RESTJSON, nil
	case "restxml", "awsrestxml":
		return RESTXML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
}

// Valid reports whether p is one of the declared protocols.
func (p Protocol) Valid() bool {
	return p >= Query && p <= RESTXML
}

// IsREST reports whether the operation is identified by its HTTP route.
func (p Protocol) IsREST() bool {
	return p == RESTJSON || p == RESTXML
}

// IsXML reports whether bodies (or, for Query, responses) are XML.
func (p Protocol) IsXML() bool {
	return p == RESTXML || p == Query
}

// IsJSON reports whether bodies are JSON.
func (p Protocol) IsJSON() bool {
	return p == JSON || p == RESTJSON
}

// ContentType returns the content type of a structured request body.
// jsonVersion applies to the JSON protocol only.
func (p Protocol) ContentType(jsonVersion string) string {
	switch p {
	case Query:
		return ContentTypeForm
	case JSON:
		if jsonVersion == "" {
			jsonVersion = DefaultJSONVersion
		}
		return "application/x-amz-json-" + jsonVersion
	case RESTJSON:
		return ContentTypeRESTJSON
	case RESTXML:
		return ContentTypeXML
	}
	return ""
}
