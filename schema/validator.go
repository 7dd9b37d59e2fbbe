// Package schema validates request bodies against the JSON Schema shapes the
// service accepts.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	RegisterRequest       = "RegisterRequest"
	LoginRequest          = "LoginRequest"
	ChangePasswordRequest = "ChangePasswordRequest"
)

const baseURL = "http://usersvc.local/schemas/"

const definitionsFile = "definitions.json"

var ErrUnknownShape = errors.New("unknown validation schema")

//go:embed shapes/*.json
var shapesFS embed.FS

var shapeFiles = map[string]string{
	RegisterRequest:       "registerRequest.json",
	LoginRequest:          "loginRequest.json",
	ChangePasswordRequest: "changePasswordRequest.json",
}

// FieldError describes one failed rule. InstancePath is empty for a missing
// required property and "/field" otherwise.
type FieldError struct {
	InstancePath string                 `json:"instancePath"`
	Keyword      string                 `json:"keyword"`
	Params       map[string]interface{} `json:"params,omitempty"`
	Message      string                 `json:"message,omitempty"`
}

type Result struct {
	Valid  bool
	Errors []FieldError
}

type shape struct {
	schema *jsonschema.Schema
	// order is each property's position in the shape's required list.
	order map[string]int
	// messages maps property -> keyword -> message override.
	messages map[string]map[string]string
	// maxBytes caps the encoded length of string properties. bcrypt rejects
	// input over 72 bytes, which the character-based pattern cannot express.
	maxBytes map[string]int
}

// Validator holds the compiled request shapes. It is immutable once built and
// safe for concurrent use.
type Validator struct {
	shapes  map[string]*shape
	printer *message.Printer
}

// New compiles every request shape. It fails if any embedded document is
// malformed.
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft7)
	c.AssertFormat()

	defs, err := loadDocument(definitionsFile)
	if err != nil {
		return nil, err
	}
	if err := c.AddResource(baseURL+definitionsFile, defs); err != nil {
		return nil, fmt.Errorf("add %s: %w", definitionsFile, err)
	}
	defMessages := definitionMessages(defs)
	defLimits := definitionLimits(defs)

	docs := map[string]interface{}{}
	for name, file := range shapeFiles {
		doc, err := loadDocument(file)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(baseURL+file, doc); err != nil {
			return nil, fmt.Errorf("add %s: %w", file, err)
		}
		docs[name] = doc
	}

	v := &Validator{shapes: map[string]*shape{}, printer: message.NewPrinter(language.English)}
	for name, file := range shapeFiles {
		sch, err := c.Compile(baseURL + file)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		order, messages, maxBytes := describeShape(docs[name], defMessages, defLimits)
		v.shapes[name] = &shape{schema: sch, order: order, messages: messages, maxBytes: maxBytes}
	}

	return v, nil
}

// Validate checks payload against the named shape. A payload that is not a
// JSON document is reported as a type failure at the root.
func (v *Validator) Validate(name string, payload []byte) (Result, error) {
	s, ok := v.shapes[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownShape, name)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return Result{Errors: []FieldError{{
			InstancePath: "",
			Keyword:      "type",
			Params:       map[string]interface{}{"type": "object"},
			Message:      "request body must be a JSON object",
		}}}, nil
	}

	var errs []FieldError
	if err := s.schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return Result{}, fmt.Errorf("validate %s: %w", name, err)
		}
		v.collect(s, ve, &errs)
	}
	errs = append(errs, s.checkByteLimits(inst)...)
	if len(errs) == 0 {
		return Result{Valid: true}, nil
	}

	errs = dedupe(errs)
	sortErrors(s, errs)

	return Result{Errors: errs}, nil
}

// collect flattens the error tree into its leaves.
func (v *Validator) collect(s *shape, ve *jsonschema.ValidationError, out *[]FieldError) {
	if len(ve.Causes) > 0 {
		for _, c := range ve.Causes {
			v.collect(s, c, out)
		}
		return
	}

	instancePath := ""
	if len(ve.InstanceLocation) > 0 {
		instancePath = "/" + strings.Join(ve.InstanceLocation, "/")
	}

	switch k := ve.ErrorKind.(type) {
	case *kind.Required:
		for _, missing := range k.Missing {
			*out = append(*out, FieldError{
				InstancePath: instancePath,
				Keyword:      "required",
				Params:       map[string]interface{}{"missingProperty": missing},
				Message:      fmt.Sprintf("must have required property '%s'", missing),
			})
		}
		return
	case *kind.Type:
		*out = append(*out, v.fieldError(s, ve, instancePath, "type", map[string]interface{}{"type": strings.Join(k.Want, ",")}))
	case *kind.Format:
		*out = append(*out, v.fieldError(s, ve, instancePath, "format", map[string]interface{}{"format": k.Want}))
	case *kind.Pattern:
		*out = append(*out, v.fieldError(s, ve, instancePath, "pattern", map[string]interface{}{"pattern": k.Want}))
	default:
		keyword := ""
		if kp := ve.ErrorKind.KeywordPath(); len(kp) > 0 {
			keyword = kp[len(kp)-1]
		}
		*out = append(*out, v.fieldError(s, ve, instancePath, keyword, nil))
	}
}

// checkByteLimits reports string properties longer than their byte cap as a
// pattern failure on that field.
func (s *shape) checkByteLimits(inst interface{}) []FieldError {
	obj, ok := inst.(map[string]interface{})
	if !ok {
		return nil
	}

	var errs []FieldError
	for field, limit := range s.maxBytes {
		str, ok := obj[field].(string)
		if !ok || len(str) <= limit {
			continue
		}
		msg, ok := s.messages[field]["pattern"]
		if !ok {
			msg = fmt.Sprintf("must not be longer than %d bytes", limit)
		}
		errs = append(errs, FieldError{
			InstancePath: "/" + field,
			Keyword:      "pattern",
			Params:       map[string]interface{}{"maxBytes": limit},
			Message:      msg,
		})
	}
	return errs
}

func (v *Validator) fieldError(s *shape, ve *jsonschema.ValidationError, instancePath, keyword string, params map[string]interface{}) FieldError {
	msg := ve.ErrorKind.LocalizedString(v.printer)
	if len(ve.InstanceLocation) == 1 {
		if m, ok := s.messages[ve.InstanceLocation[0]][keyword]; ok {
			msg = m
		}
	}
	return FieldError{InstancePath: instancePath, Keyword: keyword, Params: params, Message: msg}
}

// dedupe keeps the first failure per location and keyword, so a field whose
// value breaks several sub-patterns reports one pattern failure.
func dedupe(errs []FieldError) []FieldError {
	type key struct{ path, keyword, missing string }
	seen := map[key]bool{}
	out := errs[:0]
	for _, e := range errs {
		missing, _ := e.Params["missingProperty"].(string)
		k := key{e.InstancePath, e.Keyword, missing}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// sortErrors orders required failures first, then per-field failures, each
// following the shape's declared property order.
func sortErrors(s *shape, errs []FieldError) {
	rank := func(e FieldError) (int, int) {
		if e.Keyword == "required" {
			return 0, s.position(e.Params["missingProperty"])
		}
		if e.InstancePath == "" {
			return 0, -1
		}
		field := strings.SplitN(strings.TrimPrefix(e.InstancePath, "/"), "/", 2)[0]
		return 1, s.position(field)
	}

	sort.SliceStable(errs, func(i, j int) bool {
		gi, pi := rank(errs[i])
		gj, pj := rank(errs[j])
		if gi != gj {
			return gi < gj
		}
		return pi < pj
	})
}

func (s *shape) position(field interface{}) int {
	name, _ := field.(string)
	if p, ok := s.order[name]; ok {
		return p
	}
	return len(s.order)
}

func loadDocument(file string) (interface{}, error) {
	data, err := shapesFS.ReadFile(path.Join("shapes", file))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return doc, nil
}

// definitionMessages reads the errorMessage overrides of each shared
// definition, keyed by definition name then keyword.
func definitionMessages(defs interface{}) map[string]map[string]string {
	out := map[string]map[string]string{}
	root, _ := defs.(map[string]interface{})
	definitions, _ := root["definitions"].(map[string]interface{})
	for name, def := range definitions {
		d, _ := def.(map[string]interface{})
		msgs, _ := d["errorMessage"].(map[string]interface{})
		for keyword, m := range msgs {
			if text, ok := m.(string); ok {
				if out[name] == nil {
					out[name] = map[string]string{}
				}
				out[name][keyword] = text
			}
		}
	}
	return out
}

// definitionLimits reads the x-maxBytes cap of each shared definition.
func definitionLimits(defs interface{}) map[string]int {
	out := map[string]int{}
	root, _ := defs.(map[string]interface{})
	definitions, _ := root["definitions"].(map[string]interface{})
	for name, def := range definitions {
		d, _ := def.(map[string]interface{})
		if n, ok := d["x-maxBytes"].(json.Number); ok {
			if limit, err := strconv.Atoi(n.String()); err == nil {
				out[name] = limit
			}
		}
	}
	return out
}

// describeShape derives the property order from the shape's required list and
// resolves each property's message overrides and byte cap through its $ref.
func describeShape(doc interface{}, defMessages map[string]map[string]string, defLimits map[string]int) (map[string]int, map[string]map[string]string, map[string]int) {
	order := map[string]int{}
	messages := map[string]map[string]string{}
	maxBytes := map[string]int{}

	root, _ := doc.(map[string]interface{})
	required, _ := root["required"].([]interface{})
	for i, r := range required {
		if name, ok := r.(string); ok {
			order[name] = i
		}
	}

	props, _ := root["properties"].(map[string]interface{})
	for name, p := range props {
		prop, _ := p.(map[string]interface{})
		ref, _ := prop["$ref"].(string)
		if ref == "" {
			continue
		}
		def := ref[strings.LastIndex(ref, "/")+1:]
		if m, ok := defMessages[def]; ok {
			messages[name] = m
		}
		if limit, ok := defLimits[def]; ok {
			maxBytes[name] = limit
		}
	}

	return order, messages, maxBytes
}
