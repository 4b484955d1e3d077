package wire

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// BodyParser decodes a reply body.
type BodyParser func(body string) (any, error)

// ParseJSON decodes body as JSON. Numbers decode as float64.
func ParseJSON(body string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DetectParser chooses the body parser from the Server header of a reply.
// Engines before 1.6 may send Python literals rather than JSON, for
// example "Server: Pixar_tractor/1.5.2 (build info)".
func DetectParser(header string) BodyParser {
	major, minor, ok := serverVersion(header)
	if ok && major == "1" && minor < 6 {
		return ParseLegacy
	}
	return ParseJSON
}

func serverVersion(header string) (string, float64, bool) {
	i := strings.Index(header, "\nServer:")
	if i < 0 {
		return "", 0, false
	}
	server := header[i+1:]
	if end := strings.Index(server, "\r\n"); end >= 0 {
		server = server[:end]
	}
	_, server, _ = strings.Cut(server, " ")
	words := strings.Fields(server)
	if len(words) == 0 {
		return "", 0, false
	}
	var v []string
	if words[0] == "Pixar" {
		v = []string{"1", "0"}
	} else {
		_, version, ok := strings.Cut(words[0], "/")
		if !ok {
			return "", 0, false
		}
		v = strings.Split(version, ".")
	}
	minor := 0.0
	if len(v) > 1 {
		if f, err := strconv.ParseFloat(v[1], 64); err == nil {
			minor = f
		}
	}
	return v[0], minor, true
}

// unpack splits a raw reply into header and body, maps the status code
// and parses the body if the request asks for it.
func unpack(reply string, req Request) (*Response, error) {
	if reply == "" {
		return nil, newError(ErrNoData, CodeParse, "no data received", nil)
	}
	header, body, _ := strings.Cut(reply, "\r\n\r\n")
	body = strings.TrimSpace(body)

	code, err := statusCode(header)
	if err != nil {
		return nil, newError(ErrReply, CodeFailure, "http transaction: "+err.Error(), err)
	}
	if code == 200 {
		code = 0
	}

	var data any
	if body != "" && req.Context != "" && (code == 0 || body[0] == '{') {
		parser := DetectParser(header)
		if req.SelectParser != nil {
			parser = req.SelectParser(header, code)
		}
		if parser != nil {
			data, err = parser(body)
			if err != nil {
				e := newError(ErrParse, CodeParse, "parse "+req.Context+": "+err.Error(), err)
				e.Data = body
				return nil, e
			}
		}
	}
	if req.Inspect != nil {
		req.Inspect(header, code)
	}
	if code != 0 {
		e := newError(ErrStatus, code, statusMessage(body, data), nil)
		e.Data = data
		return nil, e
	}
	return &Response{Header: header, Body: body, Data: data}, nil
}

// statusCode returns the code between the first and second space of the
// status line.
func statusCode(header string) (int, error) {
	line, _, _ := strings.Cut(header, "\r\n")
	_, rest, ok := strings.Cut(line, " ")
	if !ok {
		return 0, errors.New("malformed status line: " + strconv.Quote(line))
	}
	code, _, _ := strings.Cut(rest, " ")
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, errors.New("malformed status line: " + strconv.Quote(line))
	}
	return n, nil
}

func statusMessage(body string, data any) string {
	if m, ok := data.(map[string]any); ok {
		if msg, ok := m["msg"].(string); ok {
			return msg
		}
	}
	return body
}
