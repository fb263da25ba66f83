package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
)

// testbackend echoes what it received, which makes the effect of a gateway
// mount visible: the path arrives relative to the prefix, and the prefix
// itself arrives in X-Forwarded-Prefix.
func main() {
	port := flag.Int("port", 9001, "port to run the test backend on")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.Int("port", *port))

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("prefix", r.Header.Get("X-Forwarded-Prefix")),
		)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":    "Hello from backend",
			"port":       *port,
			"path":       r.URL.Path,
			"mount":      r.Header.Get("X-Forwarded-Prefix"),
			"request_id": r.Header.Get("X-Request-ID"),
		})
	})

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("test backend starting", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Error("test backend stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
