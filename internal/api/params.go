package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// QueryParamInt extracts a non-negative integer query parameter with a
// default value. Malformed or negative values are an InvalidArgument.
func QueryParamInt(r *http.Request, name string, defaultVal int) (int, error) {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, cferrors.Invalid("invalid %s parameter %q", name, val)
	}
	if i < 0 {
		return 0, cferrors.Invalid("%s must be non-negative, got %d", name, i)
	}
	return i, nil
}

// QueryParamBool extracts a boolean query parameter with a default value
func QueryParamBool(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1" || val == "yes"
}

// QueryParamType extracts an optional fact type.
func QueryParamType(r *http.Request, name string) (facts.Type, error) {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		return "", nil
	}
	t, ok := facts.ParseType(val)
	if !ok {
		return "", cferrors.Invalid("unknown fact type %q", val)
	}
	return t, nil
}

// pageParams reads limit and offset; zero limit means the engine default.
func pageParams(r *http.Request) (limit, offset int, err error) {
	if limit, err = QueryParamInt(r, "limit", 0); err != nil {
		return 0, 0, err
	}
	if offset, err = QueryParamInt(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// decodeBody decodes a JSON request body into v. An empty body leaves v as is.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return cferrors.Invalid("invalid request body: %v", err)
	}
	return nil
}
