// Package httpapi serves the connectivity pipeline over HTTP.
//
//	GET  /health   liveness probe
//	POST /infer    multipart form: image, components, optional ocr
//	GET  /metrics  Prometheus exposition
package httpapi

import (
	"encoding/json"
	"errors"
	"image"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ironsheep/pnid-topology/internal/imaging"
	"github.com/ironsheep/pnid-topology/internal/ingest"
	"github.com/ironsheep/pnid-topology/internal/pipeline"
	"github.com/ironsheep/pnid-topology/internal/pnid"
	"github.com/ironsheep/pnid-topology/internal/prompt"
)

// maxUploadBytes bounds the multipart body; scanned sheets are large.
const maxUploadBytes = 64 << 20

var errMissingPart = errors.New("missing form part")

type api struct {
	pipeline *pipeline.Pipeline
}

// NewRouter returns the HTTP handler. Metrics are served from gatherer,
// which is normally the registry the pipeline's metrics were created with.
func NewRouter(p *pipeline.Pipeline, gatherer prometheus.Gatherer) http.Handler {
	a := &api{pipeline: p}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"service":"pnid-topology"}`))
	})
	r.Post("/infer", a.infer)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

type inferResponse struct {
	Document *pnid.Document `json:"document"`
	Prompt   string         `json:"prompt,omitempty"`
}

func (a *api) infer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, a.pipeline.Reject(&pnid.InputError{Field: "request", Reason: "cannot parse multipart form", Err: err}))
		return
	}
	defer r.MultipartForm.RemoveAll()

	img, components, items, err := readInferForm(r)
	if err != nil {
		writeError(w, a.pipeline.Reject(err))
		return
	}

	doc, err := a.pipeline.Run(r.Context(), img, components, items)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	if keep, _ := strconv.ParseBool(q.Get("include_pixels")); !keep {
		doc.DropPixels()
	}
	res := inferResponse{Document: doc}
	if want, _ := strconv.ParseBool(q.Get("prompt")); want {
		topN, _ := strconv.Atoi(q.Get("top_n"))
		res.Prompt = prompt.Format(doc, topN)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// readInferForm decodes the upload. Every failure is a *pnid.InputError;
// components are validated before the optional OCR part is read.
func readInferForm(r *http.Request) (image.Image, []pnid.Component, []pnid.OCRItem, error) {
	imgFile, _, err := r.FormFile("image")
	if err != nil {
		return nil, nil, nil, partError("image", err)
	}
	defer imgFile.Close()
	img, err := imaging.Decode(imgFile)
	if err != nil {
		return nil, nil, nil, err
	}

	format, err := ingest.ParseFormat(r.FormValue("components_format"))
	if err != nil {
		return nil, nil, nil, err
	}
	compData, err := formBytes(r, "components")
	if err != nil {
		return nil, nil, nil, partError("components", err)
	}
	components, err := ingest.ParseComponents(compData, format)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := pipeline.ValidateComponents(components); err != nil {
		return nil, nil, nil, err
	}

	var items []pnid.OCRItem
	ocrData, err := formBytes(r, "ocr")
	switch {
	case errors.Is(err, errMissingPart):
	case err != nil:
		return nil, nil, nil, partError("ocr", err)
	default:
		if items, err = ingest.ParseOCR(ocrData); err != nil {
			return nil, nil, nil, err
		}
	}
	return img, components, items, nil
}

func partError(name string, err error) error {
	reason := "cannot read form part"
	if errors.Is(err, errMissingPart) || errors.Is(err, http.ErrMissingFile) {
		reason = "missing form part"
	}
	return &pnid.InputError{Field: name, Reason: reason, Err: err}
}

// formBytes reads a part sent either as a file or as a plain field.
func formBytes(r *http.Request, name string) ([]byte, error) {
	f, _, err := r.FormFile(name)
	switch {
	case err == nil:
		defer f.Close()
		return io.ReadAll(f)
	case err != http.ErrMissingFile:
		return nil, err
	}
	if v := r.FormValue(name); v != "" {
		return []byte(v), nil
	}
	return nil, errMissingPart
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if pipeline.IsInputError(err) {
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Printf("infer failed: %v", err)
	}
	http.Error(w, err.Error(), status)
}
