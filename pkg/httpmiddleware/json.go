package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
)

// writeMessage writes {"message": msg} with the given status.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
