// Package api2teams turns an OpenAPI 3 document into Adaptive Card
// templates for each operation plus TypeScript API provider stubs.
package api2teams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	// ErrSpecNotFound is returned when the OpenAPI file does not exist.
	ErrSpecNotFound = errors.New("openapi file not found")
	// ErrOutputNotEmpty is returned when the output folder has content and
	// Force is not set.
	ErrOutputNotEmpty = errors.New("output folder is not empty, use force to overwrite it")
)

// Options control where and how files are written.
type Options struct {
	Output string
	Force  bool
}

// Result lists what Generate wrote.
type Result struct {
	Title   string
	Version string
	Files   []string
}

// DefaultOutput is the output folder used when none is given: a
// generated-cards folder next to the document.
func DefaultOutput(specPath string) string {
	return filepath.Join(filepath.Dir(specPath), "generated-cards")
}

// Generate reads the OpenAPI document at specPath and writes request
// cards, response cards, mockApiProvider.ts and realApiProvider.ts into
// opts.Output.
func Generate(ctx context.Context, specPath string, opts Options) (*Result, error) {
	if err := validateArgs(specPath, opts); err != nil {
		return nil, err
	}
	slog.Info("generating cards", "spec", specPath, "output", opts.Output)

	if _, err := os.Stat(opts.Output); err == nil {
		slog.Warn("output folder already exists, files will be overwritten", "output", opts.Output)
	}
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}

	doc, err := Load(ctx, specPath)
	if err != nil {
		return nil, err
	}
	slog.Info("openapi document loaded", "title", doc.Info.Title, "version", doc.Info.Version)

	ops := Operations(doc)
	res := &Result{Title: doc.Info.Title, Version: doc.Info.Version}
	write := func(name string, v any) error {
		path := filepath.Join(opts.Output, name)
		var data []byte
		switch t := v.(type) {
		case string:
			data = []byte(t)
		default:
			var err error
			if data, err = json.MarshalIndent(v, "", "  "); err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
			data = append(data, '\n')
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		res.Files = append(res.Files, name)
		return nil
	}

	for _, op := range ops {
		if err := write(op.Name+"RequestCard.json", RequestCard(op)); err != nil {
			return nil, err
		}
	}
	for _, op := range ops {
		card, ok := ResponseCard(op)
		if !ok {
			continue
		}
		if err := write(responseCardFile(op), card); err != nil {
			return nil, err
		}
	}
	if err := write("mockApiProvider.ts", MockProvider(ops)); err != nil {
		return nil, err
	}
	if err := write("realApiProvider.ts", RealProvider(ops)); err != nil {
		return nil, err
	}
	return res, nil
}

func validateArgs(specPath string, opts Options) error {
	if _, err := os.Stat(specPath); err != nil {
		return fmt.Errorf("%w: %s", ErrSpecNotFound, specPath)
	}
	if opts.Output == "" {
		return errors.New("output folder is required")
	}
	entries, err := os.ReadDir(opts.Output)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read output folder: %w", err)
	}
	if len(entries) > 0 && !opts.Force {
		return fmt.Errorf("%w: %s", ErrOutputNotEmpty, opts.Output)
	}
	return nil
}

// Load parses and validates an OpenAPI document.
func Load(ctx context.Context, specPath string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("parse openapi: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi: %w", err)
	}
	return doc, nil
}

// Operation is one method on one path, with what the generators need.
type Operation struct {
	Name    string
	Tag     string
	Method  string
	URL     string
	Summary string
	Params  openapi3.Parameters
	Body    *openapi3.SchemaRef
	// Response is the JSON schema of the first 2xx response, if any.
	Response *openapi3.SchemaRef
}

var methodOrder = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE"}

// Operations lists the document's operations ordered by path then method.
func Operations(doc *openapi3.T) []Operation {
	if doc.Paths == nil {
		return nil
	}
	paths := doc.Paths.Map()
	urls := make([]string, 0, len(paths))
	for u := range paths {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	var ops []Operation
	taken := make(map[string]bool)
	for _, u := range urls {
		item := paths[u]
		methods := item.Operations()
		for _, m := range methodOrder {
			op, ok := methods[m]
			if !ok {
				continue
			}
			o := Operation{
				Name:    uniqueName(taken, operationName(op, m, u)),
				Tag:     "Default",
				Method:  m,
				URL:     u,
				Summary: op.Summary,
				Params:  append(append(openapi3.Parameters{}, item.Parameters...), op.Parameters...),
			}
			if len(op.Tags) > 0 {
				o.Tag = identifier(op.Tags[0], true)
			}
			if op.RequestBody != nil && op.RequestBody.Value != nil {
				if mt := op.RequestBody.Value.Content.Get("application/json"); mt != nil {
					o.Body = mt.Schema
				}
			}
			o.Response = successSchema(op)
			ops = append(ops, o)
		}
	}
	return ops
}

func successSchema(op *openapi3.Operation) *openapi3.SchemaRef {
	if op.Responses == nil {
		return nil
	}
	codes := make([]string, 0, op.Responses.Len())
	for code := range op.Responses.Map() {
		if strings.HasPrefix(code, "2") {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	for _, code := range codes {
		r := op.Responses.Value(code)
		if r == nil || r.Value == nil {
			continue
		}
		if mt := r.Value.Content.Get("application/json"); mt != nil && mt.Schema != nil {
			return mt.Schema
		}
	}
	return nil
}

// responseCardFile names a response card. A GET whose response is a
// component schema is named after it, otherwise after the operation.
func responseCardFile(op Operation) string {
	if op.Method == "GET" && op.Response != nil {
		s := op.Response
		isArray := s.Value != nil && s.Value.Type.Is("array")
		if isArray && s.Value.Items != nil {
			s = s.Value.Items
		}
		if s.Ref != "" {
			name := ComponentRefToName(s.Ref)
			if isArray {
				name += "List"
			}
			return name + "Card.json"
		}
	}
	return op.Name + "ResponseCard.json"
}

// ComponentRefToName returns the last segment of a $ref.
func ComponentRefToName(ref string) string {
	return ref[strings.LastIndex(ref, "/")+1:]
}

// operationName derives a name from the operationId, or from the method
// and path when the operationId has no letters or digits.
func operationName(op *openapi3.Operation, method, url string) string {
	if name := identifier(op.OperationID, false); name != "" {
		return name
	}
	var sb strings.Builder
	sb.WriteString(strings.ToLower(method))
	for _, seg := range strings.Split(url, "/") {
		seg = strings.Trim(seg, "{}")
		if seg == "" {
			continue
		}
		sb.WriteString(identifier(seg, true))
	}
	return sb.String()
}

// uniqueName returns name, suffixed with 2, 3, ... when an earlier
// operation already took it, and marks the result taken.
func uniqueName(taken map[string]bool, name string) string {
	candidate := name
	for i := 2; taken[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	taken[candidate] = true
	return candidate
}

// identifier keeps letters and digits, upper-casing the letter after each
// dropped character.
func identifier(s string, capitalize bool) string {
	var sb strings.Builder
	upper := capitalize
	for _, r := range s {
		isAlnum := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
		if !isAlnum {
			upper = sb.Len() > 0 || capitalize
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		sb.WriteRune(r)
	}
	return sb.String()
}
