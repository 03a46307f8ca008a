package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"pokeapp/pkg/logging"
)

const internalErrorPage = `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Error</title></head>` +
	`<body><h2>Something went wrong</h2><p>An unexpected error occurred.</p><p><a href="/pokemon">Back to the list</a></p></body></html>`

// Recoverer logs a panic with its stack and answers 500.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logging.L(r.Context()).Error("panic recovered",
					zap.Any("error", rec),
					zap.ByteString("stack", debug.Stack()),
				)

				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(internalErrorPage))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
