package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires the handlers and middleware into the HTTP surface.
type RouterConfig struct {
	Chat       *ChatHandler
	Download   *DownloadHandler
	Metrics    http.Handler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the relay's HTTP surface: the action-multiplexed POST
// endpoint at / (and /chat), GET ?dl= downloads and ?logout=1 on the same
// path, and the metrics endpoint. Middleware wraps outermost-first.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	root := func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if cfg.Chat == nil {
				http.NotFound(w, r)
				return
			}
			cfg.Chat.HandleAction(w, r)
		case http.MethodGet:
			query := r.URL.Query()
			if query.Has("dl") {
				if cfg.Download == nil {
					http.NotFound(w, r)
					return
				}
				cfg.Download.HandleDownload(w, r)
				return
			}
			if query.Has("logout") {
				if cfg.Chat == nil {
					http.NotFound(w, r)
					return
				}
				cfg.Chat.HandleLogout(w, r)
				return
			}
			http.NotFound(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/chat" {
			http.NotFound(w, r)
			return
		}
		root(w, r)
	})

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
