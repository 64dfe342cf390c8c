package server

import (
	"crypto/tls"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"golang.org/x/crypto/acme/autocert"

	"github.com/koios-ai/koios/agent"
	"github.com/koios-ai/koios/config"
	"github.com/koios-ai/koios/document_store"
	"github.com/koios-ai/koios/handlers"
	"github.com/koios-ai/koios/llm_service"
)

func SetupRoutes(cfg config.Config, workflow *agent.Workflow, store document_store.Store, lister llm_service.ModelLister, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()

	queryHandler := handlers.NewQueryHandler(workflow, cfg.EnableInternetSearch, logger)
	r.Handle("/query", queryHandler).Methods("POST")

	uploadHandler := handlers.NewUploadHandler(store, logger)
	r.Handle("/documents/upload", uploadHandler).Methods("POST")

	documentsHandler := handlers.NewDocumentsHandler(store, logger)
	r.HandleFunc("/documents", documentsHandler.List).Methods("GET")
	r.HandleFunc("/documents/{id}", documentsHandler.Delete).Methods("DELETE")
	r.HandleFunc("/documents", documentsHandler.Reset).Methods("DELETE")

	modelsHandler := handlers.NewModelsHandler(lister, cfg.DefaultModel, logger)
	r.Handle("/models", modelsHandler).Methods("GET")

	r.HandleFunc("/health", handlers.Health).Methods("GET")

	return r
}

// ServeProduction builds the server when we operate in a production environment.
func ServeProduction(n *negroni.Negroni, cfg config.Config) {
	autocertManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.Domains...),
		Cache:      autocert.DirCache(cfg.CertCacheDir),
	}

	// Listen for HTTP requests on port 80 in a new goroutine. Use
	// autocertManager.HTTPHandler(nil) as the handler. This will send ACME
	// "http-01" challenge responses as necessary, and 302 redirect all other
	// requests to HTTPS.
	go func() {
		srv := &http.Server{
			Addr:         ":80",
			Handler:      autocertManager.HTTPHandler(nil),
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		err := srv.ListenAndServe()
		log.Fatal(err)
	}()

	// Configure the TLS config to use the autocertManager.GetCertificate function.
	tlsConfig := &tls.Config{
		GetCertificate:           autocertManager.GetCertificate,
		PreferServerCipherSuites: true,
		CurvePreferences:         []tls.CurveID{tls.X25519, tls.CurveP256},
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPSPort,
		Handler:      n,
		TLSConfig:    tlsConfig,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	err := srv.ListenAndServeTLS("", "") // Key and cert provided automatically by autocert.
	log.Fatal(err)
}

// ServeDevelopment starts the server when we operate in a dev environment.
func ServeDevelopment(s *http.Server) {
	log.Fatal(s.ListenAndServe())
}
