package gateway

import "net/http"

const landingPage = `<!DOCTYPE html>
<html>
<head><title>memgate</title></head>
<body>
<h1>memgate</h1>
<p>Per-user memory sessions over a tool-calling protocol.</p>
<p>Connect your client to <code>/{identity}/sse</code> and post messages
to <code>/{identity}/messages</code>.</p>
</body>
</html>
`

// DefaultPage serves the built-in landing page for all fallthrough paths.
func DefaultPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(landingPage))
	})
}
