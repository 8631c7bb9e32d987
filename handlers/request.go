package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"project-tracker/middleware"
	"project-tracker/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return &services.ValidationError{Fields: []string{"body"}}
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &services.ValidationError{Fields: []string{typeErr.Field}}
		}
		return &services.ValidationError{Fields: []string{"body"}}
	}
	return nil
}

// decodePatch decodes a JSON object and rejects keys outside allowed.
func decodePatch(w http.ResponseWriter, r *http.Request, allowed ...string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &services.ValidationError{Fields: []string{"body"}}
	}

	ok := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		ok[k] = true
	}
	var unknown []string
	for k := range raw {
		if !ok[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &services.ValidationError{Fields: unknown}
	}
	return raw, nil
}

// patchField decodes raw[key] when present and records a failure on verr.
func patchField[T any](raw map[string]json.RawMessage, key string, verr *services.ValidationError) *T {
	msg, ok := raw[key]
	if !ok {
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(msg, v); err != nil {
		verr.Add(key)
		return nil
	}
	return v
}

// Date accepts RFC 3339 timestamps and plain dates.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return errors.New("invalid date " + s)
}

func (d *Date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func pathID(r *http.Request, key string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[key])
	if err != nil {
		return primitive.NilObjectID, &services.ValidationError{Fields: []string{key}}
	}
	return id, nil
}

// optionalID parses a body id; empty means unset.
func optionalID(s, field string, verr *services.ValidationError) primitive.ObjectID {
	s = strings.TrimSpace(s)
	if s == "" {
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		verr.Add(field)
		return primitive.NilObjectID
	}
	return id
}

func caller(r *http.Request) primitive.ObjectID {
	id, _ := middleware.UserID(r.Context())
	return id
}
