package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// RequestError is a malformed request body or parameter.
type RequestError struct {
	Msg string
	Err error
}

func (e *RequestError) Error() string { return e.Msg }

func (e *RequestError) Unwrap() error { return e.Err }

func badRequest(msg string, err error) error {
	return &RequestError{Msg: msg, Err: err}
}

// readBody reads the request body and returns a decoder over it. An empty
// body decodes as an empty object.
func readBody(w http.ResponseWriter, r *http.Request) (*jx.Decoder, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest("Invalid request body", err)
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	return jx.DecodeBytes(body), nil
}

// readAmount decodes a money value the way storefront clients send it:
// numbers, numeric strings, null or garbage (as zero).
func readAmount(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, nil
		}
		return v, nil
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, d.Skip()
	}
}

// readDecimal decodes a number or numeric string strictly. null reports
// valid=false.
func readDecimal(d *jx.Decoder) (v decimal.Decimal, valid bool, err error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return v, false, err
		}
		v, err = decimal.NewFromString(n.String())
		return v, err == nil, err
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return v, false, err
		}
		v, err = decimal.NewFromString(s)
		return v, err == nil, err
	case jx.Null:
		return v, false, d.Null()
	default:
		return v, false, errors.Errorf("expected number, got %s", d.Next())
	}
}

// readInt decodes a whole number. null reports valid=false.
func readInt(d *jx.Decoder) (v int, valid bool, err error) {
	dec, valid, err := readDecimal(d)
	if err != nil || !valid {
		return 0, valid, err
	}
	if !dec.IsInteger() {
		return 0, false, errors.Errorf("expected whole number, got %s", dec)
	}
	return int(dec.IntPart()), true, nil
}

// readTime decodes an RFC 3339 timestamp or a bare date. null reports
// valid=false.
func readTime(d *jx.Decoder) (t time.Time, valid bool, err error) {
	if d.Next() == jx.Null {
		return t, false, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return t, false, err
	}
	if s == "" {
		return t, false, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err = time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	return t, false, errors.Errorf("invalid timestamp %q", s)
}

// readString accepts null as "".
func readString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.RawStr(v.String())
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeOptTime(e *jx.Encoder, t *time.Time) {
	if t == nil {
		e.Null()
		return
	}
	encodeTime(e, *t)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}
