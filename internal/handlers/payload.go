package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"forumshop/internal/validator"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 4 << 20
	multipartMemory  = 2 << 20
)

// payload is a request body read either as a JSON object or as multipart
// form fields, so category and item forms can carry an image file.
type payload struct {
	fields map[string]json.RawMessage
	form   *multipart.Form
}

func readPayload(w http.ResponseWriter, r *http.Request) (*payload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, validator.ErrInvalidFormat.WithMessage("Invalid multipart body").Wrap(err)
		}
		return &payload{form: r.MultipartForm}, nil
	}
	fields := map[string]json.RawMessage{}
	if err := decodeJSON(w, r, &fields); err != nil {
		return nil, err
	}
	return &payload{fields: fields}, nil
}

// decodeJSON reads a JSON body into dest. An empty body leaves dest as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dest)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return validator.ErrInvalidFormat.WithMessage("Invalid JSON body").Wrap(err)
}

func (p *payload) has(name string) bool {
	if p.form != nil {
		_, ok := p.form.Value[name]
		return ok
	}
	raw, ok := p.fields[name]
	return ok && string(raw) != "null"
}

// value reads a scalar field; absent fields come back Missing.
func (p *payload) value(name string) (validator.Value, error) {
	if p.form != nil {
		return validator.NewValue(first(p.form.Value[name])), nil
	}
	var v validator.Value
	raw, ok := p.fields[name]
	if !ok {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, validator.InvalidFormat(name, "a string or number")
	}
	return v, nil
}

// list reads an array field. Multipart forms send it repeated or
// comma-separated.
func (p *payload) list(name string) ([]validator.Value, error) {
	if p.form != nil {
		var values []validator.Value
		for _, entry := range p.form.Value[name] {
			for _, part := range strings.Split(entry, ",") {
				values = append(values, validator.NewValue(part))
			}
		}
		return values, nil
	}
	raw, ok := p.fields[name]
	if !ok {
		return nil, nil
	}
	var values []validator.Value
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, validator.InvalidFormat(name, "an array")
	}
	return values, nil
}

func (p *payload) file(name string) (multipart.File, bool, error) {
	if p.form == nil || len(p.form.File[name]) == 0 {
		return nil, false, nil
	}
	file, err := p.form.File[name][0].Open()
	if err != nil {
		return nil, false, err
	}
	return file, true, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// actorID reads the acting user id from the body or, for bodiless
// requests, from the query string.
func actorID(r *http.Request, p *payload) (int64, error) {
	if p != nil && p.has("user_id") {
		v, err := p.value("user_id")
		if err != nil {
			return 0, err
		}
		return validator.ID("user_id", v)
	}
	return validator.ID("user_id", validator.NewValue(r.URL.Query().Get("user_id")))
}

func idList(field string, values []validator.Value) ([]int64, error) {
	if err := validator.NonEmpty(field, len(values)); err != nil {
		return nil, err
	}
	ids := make([]int64, len(values))
	for i, v := range values {
		id, err := validator.ID(validator.Index(field, i, ""), v)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
