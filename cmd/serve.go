package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veldt-group/boq-cli/internal/fetcher"
	"github.com/veldt-group/boq-cli/internal/model"
	"github.com/veldt-group/boq-cli/internal/pipeline"
	"github.com/veldt-group/boq-cli/internal/store"
)

var (
	servePort int
	serveAI   bool
)

// maxUploadBytes bounds one multipart BOQ upload.
const maxUploadBytes = 50 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for BOQ uploads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, st, err := initProcessor(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(ctx, p, st),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newRouter wires the upload API. baseCtx outlives individual requests
// so background processing survives the client disconnecting.
func newRouter(baseCtx context.Context, p *pipeline.Processor, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/uploads", func(w http.ResponseWriter, req *http.Request) {
		handleUpload(baseCtx, p, st, w, req)
	})

	r.Get("/uploads", func(w http.ResponseWriter, req *http.Request) {
		uploads, err := st.ListUploads(req.Context(), store.UploadFilter{
			Status: model.UploadStatus(req.URL.Query().Get("status")),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, uploads)
	})

	r.Get("/uploads/{id}", func(w http.ResponseWriter, req *http.Request) {
		u, err := st.GetUpload(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if u == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "upload not found"})
			return
		}
		writeJSON(w, http.StatusOK, u)
	})

	r.Get("/uploads/{id}/items", func(w http.ResponseWriter, req *http.Request) {
		items, err := st.ItemsForUpload(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	})

	return r
}

// handleUpload accepts a multipart BOQ file, registers the upload, and
// processes it in the background. The response is 202 with the upload ID
// for polling.
func handleUpload(baseCtx context.Context, p *pipeline.Processor, st store.Store, w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)

	file, header, err := req.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	// Stage the payload so the format dispatch can reuse the original
	// extension.
	tmpDir, err := os.MkdirTemp("", "boq-upload-")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	tmpPath := filepath.Join(tmpDir, filepath.Base(header.Filename))
	dst, err := os.Create(tmpPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.RemoveAll(tmpDir)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	dst.Close()

	text, err := fetcher.Load(tmpPath)
	os.RemoveAll(tmpDir)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	uploadID := uuid.New().String()
	if _, err := st.CreateUpload(req.Context(), uploadID, header.Filename); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// The upload is visibly processing before the response goes out, so a
	// poll immediately after the 202 never sees it pending.
	if err := st.MarkProcessing(req.Context(), uploadID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	opts := pipeline.Options{UseAI: serveAI || cfg.Process.UseAI}
	go func() {
		if _, err := p.Process(baseCtx, uploadID, text, opts); err != nil {
			zap.L().Error("background processing failed",
				zap.String("upload_id", uploadID),
				zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     uploadID,
		"status": string(model.UploadStatusProcessing),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, status, map[string]string{"error": "internal error"})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveAI, "ai", false, "use AI extraction for unmapped sheets")
	rootCmd.AddCommand(serveCmd)
}
