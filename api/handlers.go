package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"images_to_pdf/internal/collection"
	"images_to_pdf/internal/config"
	"images_to_pdf/internal/converter"
	"images_to_pdf/internal/ingest"
	"images_to_pdf/internal/workspace"
)

const defaultMaxMemory = 32 << 20 // 32 MB for multipart form parsing

type APIErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSONError(w http.ResponseWriter, message string, details interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errResponse := APIErrorResponse{
		Error:   message,
		Details: details,
	}
	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		slog.Error("Failed to write JSON error response", "error", err)
		// Fallback if JSON encoding fails
		http.Error(w, `{"error":"Failed to serialize error message"}`, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// statusFor maps conversion and workspace errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, converter.ErrEmptyCollection):
		return http.StatusBadRequest
	case errors.Is(err, converter.ErrConversionInProgress):
		return http.StatusConflict
	case errors.Is(err, collection.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, converter.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, converter.ErrImageDecode),
		errors.Is(err, converter.ErrEncode),
		errors.Is(err, converter.ErrCanvasUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(message, "error", err)
	} else {
		slog.Warn(message, "error", err, "status", status)
	}
	writeJSONError(w, message, err.Error(), status)
}

// Handler serves the workspace commands over HTTP.
type Handler struct {
	ws  *workspace.Workspace
	cfg *config.Config
}

// NewHandler returns a Handler driving ws. cfg supplies the output filename and
// the pipeline used by one-shot conversions.
func NewHandler(ws *workspace.Workspace, cfg *config.Config) *Handler {
	return &Handler{ws: ws, cfg: cfg}
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}

func (h *Handler) HandleWorkspace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.ws.Snapshot(), http.StatusOK)
}

type ingestResponse struct {
	Added    []collection.Record `json:"added"`
	Rejected []string            `json:"rejected,omitempty"`
}

// uploadedFiles parses the multipart body and returns the "images" parts.
func uploadedFiles(w http.ResponseWriter, r *http.Request) ([]ingest.File, bool) {
	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			slog.Warn("Empty or malformed request body", "error", err)
			writeJSONError(w, "Malformed request body or empty request", err.Error(), http.StatusBadRequest)
			return nil, false
		}
		slog.Error("Failed to parse multipart form", "error", err)
		writeJSONError(w, "Failed to parse request data", err.Error(), http.StatusBadRequest)
		return nil, false
	}

	headers := r.MultipartForm.File["images"]
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		slog.Debug("Processing uploaded file", "filename", fh.Filename, "size", fh.Size)
		files = append(files, ingest.FromMultipart(fh))
	}
	return files, true
}

func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	files, ok := uploadedFiles(w, r)
	if !ok {
		return
	}
	if len(files) == 0 {
		writeJSONError(w, "No images provided", "Please upload at least one file in the 'images' field.", http.StatusBadRequest)
		return
	}

	res, err := h.ws.Ingest(r.Context(), files)
	if err != nil {
		writeError(w, "Failed to add images", err)
		return
	}
	resp := ingestResponse{Added: res.Records}
	for _, rej := range res.Rejected {
		resp.Rejected = append(resp.Rejected, rej.Message())
	}
	writeJSON(w, resp, http.StatusOK)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Clear(); err != nil {
		writeError(w, "Failed to clear images", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, "Failed to remove image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	deg, err := h.ws.Rotate(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "Failed to rotate image", err)
		return
	}
	writeJSON(w, map[string]int{"rotation": deg}, http.StatusOK)
}

func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	dir, err := collection.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		writeJSONError(w, "Invalid direction", err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.ws.MoveAdjacent(chi.URLParam(r, "id"), dir); err != nil {
		writeError(w, "Failed to move image", err)
		return
	}
	writeJSON(w, h.ws.Snapshot(), http.StatusOK)
}

type repositionRequest struct {
	BeforeID string `json:"before_id"`
}

func (h *Handler) HandleReposition(w http.ResponseWriter, r *http.Request) {
	var req repositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BeforeID == "" {
		details := "before_id is required"
		if err != nil {
			details = err.Error()
		}
		writeJSONError(w, "Invalid reposition request", details, http.StatusBadRequest)
		return
	}
	if err := h.ws.Reposition(chi.URLParam(r, "id"), req.BeforeID); err != nil {
		writeError(w, "Failed to reposition image", err)
		return
	}
	writeJSON(w, h.ws.Snapshot(), http.StatusOK)
}

func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	res, err := h.ws.Preview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "Failed to render preview", err)
		return
	}
	w.Header().Set("Content-Type", res.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	if _, err := w.Write(res.Data); err != nil {
		slog.Error("Failed to write preview", "error", err)
	}
}

func (h *Handler) HandleCrop(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, "Cropping is not supported", nil, http.StatusNotImplemented)
}

func (h *Handler) HandleGetOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.ws.Options(), http.StatusOK)
}

func (h *Handler) HandlePutOptions(w http.ResponseWriter, r *http.Request) {
	opts := h.ws.Options()
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeJSONError(w, "Invalid options JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.ws.SetOptions(opts); err != nil {
		if errors.Is(err, converter.ErrConversionInProgress) {
			writeError(w, "Failed to update options", err)
			return
		}
		writeJSONError(w, "Invalid options", err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, h.ws.Options(), http.StatusOK)
}

func (h *Handler) HandleDismissBanner(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.DismissBanner(); err != nil {
		writeError(w, "Failed to dismiss banner", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleConvertWorkspace(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.ws.Convert(r.Context(), &buf); err != nil {
		writeError(w, "PDF conversion failed", err)
		return
	}
	writePDF(w, &buf, h.cfg.OutputFilename)
}

// HandleConvert converts the uploaded images in one request on a throwaway
// workspace. The optional "config" field carries conversion options as JSON.
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	// Ensure body is closed
	defer func() {
		if r.Body != nil {
			io.Copy(io.Discard, r.Body) // Drain any remaining parts of the body
			r.Body.Close()
		}
	}()

	files, ok := uploadedFiles(w, r)
	if !ok {
		return
	}

	opts := h.cfg.Options
	if configStr := r.FormValue("config"); configStr != "" {
		slog.Debug("Received config string", "config", configStr)
		if err := json.Unmarshal([]byte(configStr), &opts); err != nil {
			slog.Warn("Failed to parse 'config' JSON", "error", err, "configStr", configStr)
			writeJSONError(w, "Invalid 'config' JSON", err.Error(), http.StatusBadRequest)
			return
		}
	}
	opts, err := opts.Normalize()
	if err != nil {
		writeJSONError(w, "Invalid 'config' values", err.Error(), http.StatusBadRequest)
		return
	}

	if len(files) == 0 {
		slog.Info("No image files provided")
		writeJSONError(w, "No images provided", "Please upload at least one file in the 'images' field.", http.StatusBadRequest)
		return
	}

	t := h.cfg.NewTransformer()
	ws := workspace.New(h.cfg.NewIngester(), t, h.cfg.NewAssembler(t), opts)
	res, err := ws.Ingest(r.Context(), files)
	if err != nil {
		writeError(w, "Failed to read images", err)
		return
	}
	if len(res.Records) == 0 {
		rejected := make([]string, 0, len(res.Rejected))
		for _, rej := range res.Rejected {
			rejected = append(rejected, rej.Message())
		}
		writeJSONError(w, "No images could be processed into the PDF", rejected, http.StatusUnsupportedMediaType)
		return
	}

	var buf bytes.Buffer
	if err := ws.Convert(r.Context(), &buf); err != nil {
		writeError(w, "PDF conversion failed", err)
		return
	}
	writePDF(w, &buf, h.cfg.OutputFilename)
}

func writePDF(w http.ResponseWriter, buf *bytes.Buffer, filename string) {
	outputFilename := sanitizeFilename(filename)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, outputFilename))
	contentLength := buf.Len()
	w.Header().Set("Content-Length", strconv.Itoa(contentLength))

	slog.Info("Successfully generated PDF", "filename", outputFilename, "size", contentLength)
	if _, err := buf.WriteTo(w); err != nil {
		// This error usually means the client closed the connection.
		slog.Error("Failed to write PDF to response", "error", err)
	}
}

func sanitizeFilename(name string) string {
	if name == "" {
		name = converter.DefaultOutputFilename
	}
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\"", "")
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
