package registry

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gurre/awscore/shape"
)

// Catalog is the JSON description of one service: its protocol metadata,
// named shapes and operations.
//
//	{
//	  "metadata": {"protocol": "rest-xml", "signingName": "s3"},
//	  "shapes": {
//	    "HeadObjectInput": {"fields": [
//	      {"name": "Bucket", "location": "uri", "required": true, "type": {"kind": "string"}},
//	      {"name": "Key", "location": "uri", "required": true, "type": {"kind": "string"}}
//	    ]}
//	  },
//	  "operations": [
//	    {"name": "HeadObject", "method": "HEAD", "path": "/{Bucket}/{Key+}", "input": "HeadObjectInput"}
//	  ]
//	}
type Catalog struct {
	Metadata   Metadata            `json:"metadata"`
	Shapes     map[string]ShapeDef `json:"shapes"`
	Operations []OperationDef      `json:"operations"`
}

// Metadata carries the service-wide settings a client needs besides shapes.
type Metadata struct {
	Protocol       string `json:"protocol"`
	APIVersion     string `json:"apiVersion,omitempty"`
	TargetPrefix   string `json:"targetPrefix,omitempty"`
	JSONVersion    string `json:"jsonVersion,omitempty"`
	XMLNamespace   string `json:"xmlNamespace,omitempty"`
	SigningName    string `json:"signingName,omitempty"`
	EndpointPrefix string `json:"endpointPrefix,omitempty"`
}

type ShapeDef struct {
	Fields     []FieldDef `json:"fields"`
	Payload    string     `json:"payload,omitempty"`
	Flattened  bool       `json:"flattened,omitempty"`
	MemberName string     `json:"memberName,omitempty"`
	KeyName    string     `json:"keyName,omitempty"`
	ValueName  string     `json:"valueName,omitempty"`
}

type FieldDef struct {
	Name     string  `json:"name"`
	WireName string  `json:"wireName,omitempty"`
	Location string  `json:"location,omitempty"` // body, header, querystring, uri
	Required bool    `json:"required,omitempty"`
	Type     TypeDef `json:"type"`
}

type TypeDef struct {
	Kind            string   `json:"kind"`
	Shape           string   `json:"shape,omitempty"`  // structure reference
	Member          *TypeDef `json:"member,omitempty"` // list member or map value
	Enum            []string `json:"enum,omitempty"`
	TimestampFormat string   `json:"timestampFormat,omitempty"`
}

type OperationDef struct {
	Name   string `json:"name"`
	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`
}

// ParseCatalog decodes a JSON catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return &c, nil
}

// Registry resolves every operation of c into a new Registry.
func (c *Catalog) Registry() (*Registry, error) {
	res := resolver{defs: c.Shapes, built: make(map[string]*shape.Shape), visiting: make(map[string]bool)}
	r, _ := New()
	for _, def := range c.Operations {
		op := shape.Operation{Name: def.Name, Method: def.Method, Path: def.Path}
		var err error
		if def.Input != "" {
			if op.Input, err = res.shape(def.Input); err != nil {
				return nil, fmt.Errorf("operation %s input: %w", def.Name, err)
			}
		}
		if def.Output != "" {
			if op.Output, err = res.shape(def.Output); err != nil {
				return nil, fmt.Errorf("operation %s output: %w", def.Name, err)
			}
		}
		if err := r.Register(op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// resolver builds shapes bottom-up. Shapes are immutable once built so
// recursive references cannot be expressed.
type resolver struct {
	defs     map[string]ShapeDef
	built    map[string]*shape.Shape
	visiting map[string]bool
}

func (r *resolver) shape(name string) (*shape.Shape, error) {
	if s, ok := r.built[name]; ok {
		return s, nil
	}
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: undefined shape %q", shape.ErrInvalidShape, name)
	}
	if r.visiting[name] {
		return nil, fmt.Errorf("%w: shape %q refers to itself", shape.ErrInvalidShape, name)
	}
	r.visiting[name] = true
	defer delete(r.visiting, name)

	fields := make([]shape.Field, 0, len(def.Fields))
	for _, fd := range def.Fields {
		loc, err := parseLocation(fd.Location)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, fd.Name, err)
		}
		ref, err := r.typeRef(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, fd.Name, err)
		}
		fields = append(fields, shape.Field{
			Name:     fd.Name,
			WireName: fd.WireName,
			Location: loc,
			Required: fd.Required,
			Type:     ref,
		})
	}

	var opts []shape.Option
	if def.Payload != "" {
		opts = append(opts, shape.WithPayload(def.Payload))
	}
	if def.Flattened {
		opts = append(opts, shape.FlattenLists())
	}
	if def.MemberName != "" {
		opts = append(opts, shape.WithMemberName(def.MemberName))
	}
	if def.KeyName != "" || def.ValueName != "" {
		key, value := def.KeyName, def.ValueName
		if key == "" {
			key = "key"
		}
		if value == "" {
			value = "value"
		}
		opts = append(opts, shape.WithMapNames(key, value))
	}
	s, err := shape.New(name, fields, opts...)
	if err != nil {
		return nil, err
	}
	r.built[name] = s
	return s, nil
}

func (r *resolver) typeRef(td TypeDef) (shape.TypeRef, error) {
	kind, err := parseKind(td.Kind)
	if err != nil {
		return shape.TypeRef{}, err
	}
	switch kind {
	case shape.List, shape.Map:
		if td.Member == nil {
			return shape.TypeRef{}, fmt.Errorf("%w: %s without member type", shape.ErrInvalidShape, kind)
		}
		elem, err := r.typeRef(*td.Member)
		if err != nil {
			return shape.TypeRef{}, err
		}
		if kind == shape.List {
			return shape.ListOf(elem), nil
		}
		return shape.MapOf(elem), nil
	case shape.Structure:
		nested, err := r.shape(td.Shape)
		if err != nil {
			return shape.TypeRef{}, err
		}
		return shape.StructureOf(nested), nil
	case shape.Enum:
		return shape.EnumOf(td.Enum...), nil
	case shape.Timestamp:
		tf, err := parseTimestampFormat(td.TimestampFormat)
		if err != nil {
			return shape.TypeRef{}, err
		}
		return shape.TimestampAs(tf), nil
	}
	return shape.Of(kind), nil
}

var kinds = []shape.Kind{
	shape.String, shape.Integer, shape.Double, shape.Boolean, shape.Timestamp,
	shape.Blob, shape.List, shape.Map, shape.Structure, shape.Enum,
}

func parseKind(s string) (shape.Kind, error) {
	switch strings.ToLower(s) {
	case "long", "short", "byte":
		return shape.Integer, nil
	case "float":
		return shape.Double, nil
	}
	for _, k := range kinds {
		if strings.EqualFold(k.String(), s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", shape.ErrInvalidShape, s)
}

func parseLocation(s string) (shape.Location, error) {
	switch strings.ToLower(s) {
	case "", "body":
		return shape.Body, nil
	case "header", "headers":
		return shape.Header, nil
	case "querystring", "query":
		return shape.QueryString, nil
	case "uri", "uripath":
		return shape.URIPath, nil
	}
	return 0, fmt.Errorf("%w: unknown location %q", shape.ErrInvalidShape, s)
}

func parseTimestampFormat(s string) (shape.TimestampFormat, error) {
	switch strings.ToLower(s) {
	case "":
		return shape.DefaultTimestampFormat, nil
	case "iso8601":
		return shape.ISO8601, nil
	case "http-date", "rfc822":
		return shape.HTTPDate, nil
	case "epoch-seconds", "unixtimestamp":
		return shape.EpochSeconds, nil
	}
	return 0, fmt.Errorf("%w: unknown timestamp format %q", shape.ErrInvalidShape, s)
}

// ShapeNames returns the defined shape names in sorted order.
func (c *Catalog) ShapeNames() []string {
	names := make([]string, 0, len(c.Shapes))
	for n := range c.Shapes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
