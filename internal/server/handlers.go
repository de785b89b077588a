package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/zenazn/goji/web"
	"github.com/zenazn/goji/web/middleware"

	"github.com/ironsheep/dicom-viewer/internal/config"
	"github.com/ironsheep/dicom-viewer/internal/imaging"
	"github.com/ironsheep/dicom-viewer/internal/session"
)

var (
	// errInputMissing marks requests that lack a required file or body.
	errInputMissing = errors.New("input missing")

	// errMalformed marks request bodies or parameters that do not parse.
	errMalformed = errors.New("malformed request")
)

// requestError carries the message shown to the client while still matching
// its cause with errors.Is.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return e.err }

func withMessage(err error, format string, args ...interface{}) error {
	return &requestError{msg: fmt.Sprintf(format, args...), err: err}
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errInputMissing), errors.Is(err, errMalformed):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotLoaded):
		return http.StatusBadRequest
	case errors.Is(err, imaging.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, imaging.ErrRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// replyError writes err as a JSON error body with the mapped status.
func replyError(c web.C, w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()

	var re *requestError
	if !errors.As(err, &re) && errors.Is(err, session.ErrNotLoaded) {
		msg = "No image loaded"
	}
	if status == http.StatusInternalServerError {
		config.Errorf("[%s] %v\n", middleware.GetReqID(c), err)
	} else {
		config.Debugf("[%s] %d: %v\n", middleware.GetReqID(c), status, err)
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		config.Errorf("Failed to encode response: %v\n", err)
	}
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// decodeBody unmarshals a JSON request body over v, which should hold the
// defaults. It reports whether the body held any fields at all, so an empty
// body and "{}" both report false.
func decodeBody(r *http.Request, v interface{}) (bool, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read request body: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return false, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false, withMessage(errMalformed, "invalid JSON body: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, withMessage(errMalformed, "invalid JSON body: %v", err)
	}
	return len(fields) > 0, nil
}

// notFoundHandler answers unmatched requests. goji also routes method
// mismatches here, with the allowed methods in c.Env.
func notFoundHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	if methods, ok := c.Env[web.ValidMethodsKey].([]string); ok && len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path))
		return
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("no endpoint %s %s", r.Method, r.URL.Path))
}

// === Informational Handlers ===

func (s *Server) handleIndex(c web.C, w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"endpoints": routeTable(),
	})
}

func (s *Server) handlePing(c web.C, w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"image_loaded": s.session.Loaded(),
	})
}

// === Study Handlers ===

type uploadResponse struct {
	Message  string         `json:"message"`
	Metadata imaging.Fields `json:"metadata"`
}

func (s *Server) handleUpload(c web.C, w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.opts.MaxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.opts.MaxUploadSize))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			replyError(c, w, withMessage(err, "upload exceeds %d bytes", s.opts.MaxUploadSize))
		case errors.Is(err, http.ErrMissingFile) && r.MultipartForm != nil && len(r.MultipartForm.Value["file"]) > 0:
			// A file part with an empty filename parses as a plain form value.
			replyError(c, w, withMessage(errInputMissing, "No selected file"))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			replyError(c, w, withMessage(errInputMissing, "No file part"))
		default:
			replyError(c, w, withMessage(errMalformed, "invalid multipart body: %v", err))
		}
		return
	}
	defer file.Close()

	if header.Filename == "" {
		replyError(c, w, withMessage(errInputMissing, "No selected file"))
		return
	}

	fields, err := s.session.Upload(header.Filename, file)
	if err != nil {
		replyError(c, w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Message:  "File uploaded successfully",
		Metadata: fields,
	})
}

func (s *Server) handleMetadata(c web.C, w http.ResponseWriter, r *http.Request) {
	fields, err := s.session.Metadata()
	if err != nil {
		replyError(c, w, noStudy(err))
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

func (s *Server) handleImage(c web.C, w http.ResponseWriter, r *http.Request) {
	data, err := s.session.Image()
	if err != nil {
		replyError(c, w, noStudy(err))
		return
	}
	writePNG(c, w, data)
}

func writePNG(c web.C, w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		config.Debugf("[%s] failed to write image: %v\n", middleware.GetReqID(c), err)
	}
}

func (s *Server) handleGridImage(c web.C, w http.ResponseWriter, r *http.Request) {
	opts := imaging.GridOptions{Spacing: 50, Labels: true, Color: imaging.DefaultGridColor}
	q := r.URL.Query()

	if v := q.Get("spacing"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			replyError(c, w, withMessage(errMalformed, "spacing must be an integer"))
			return
		}
		opts.Spacing = n
	}
	if v := q.Get("labels"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			replyError(c, w, withMessage(errMalformed, "labels must be true or false"))
			return
		}
		opts.Labels = b
	}
	if v := q.Get("color"); v != "" {
		col, err := imaging.ParseGridColor(v)
		if err != nil {
			replyError(c, w, err)
			return
		}
		opts.Color = col
	}

	data, err := s.session.GridImage(opts)
	if err != nil {
		replyError(c, w, noStudy(err))
		return
	}
	writePNG(c, w, data)
}

// noStudy gives ErrNotLoaded the wording used by the study endpoints.
func noStudy(err error) error {
	if errors.Is(err, session.ErrNotLoaded) {
		return withMessage(err, "No DICOM file loaded")
	}
	return err
}

// === Transform Handlers ===

type adjustArgs struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
}

func (s *Server) handleAdjust(c web.C, w http.ResponseWriter, r *http.Request) {
	a := adjustArgs{Brightness: 1.0, Contrast: 1.0}
	present, err := decodeBody(r, &a)
	if err != nil {
		replyError(c, w, err)
		return
	}
	if !present {
		replyError(c, w, withMessage(errInputMissing, "No adjustment parameters provided"))
		return
	}
	if err := s.session.Adjust(a.Brightness, a.Contrast); err != nil {
		replyError(c, w, err)
		return
	}
	writeMessage(w, "Image adjusted successfully")
}

type cropArgs struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleCrop(c web.C, w http.ResponseWriter, r *http.Request) {
	a := cropArgs{Width: 100, Height: 100}
	if _, err := decodeBody(r, &a); err != nil {
		replyError(c, w, err)
		return
	}
	if err := s.session.Crop(a.X, a.Y, a.Width, a.Height); err != nil {
		replyError(c, w, err)
		return
	}
	writeMessage(w, "Image cropped successfully")
}

type zoomArgs struct {
	ZoomFactor float64 `json:"zoom_factor"`
}

func (s *Server) handleZoom(c web.C, w http.ResponseWriter, r *http.Request) {
	a := zoomArgs{ZoomFactor: 1.0}
	if _, err := decodeBody(r, &a); err != nil {
		replyError(c, w, err)
		return
	}
	if err := s.session.Zoom(a.ZoomFactor); err != nil {
		replyError(c, w, err)
		return
	}
	writeMessage(w, "Image zoomed successfully")
}

type panArgs struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *Server) handlePan(c web.C, w http.ResponseWriter, r *http.Request) {
	var a panArgs
	if _, err := decodeBody(r, &a); err != nil {
		replyError(c, w, err)
		return
	}
	if err := s.session.Pan(a.DX, a.DY); err != nil {
		replyError(c, w, err)
		return
	}
	writeMessage(w, "Image panned successfully")
}

type windowLevelArgs struct {
	Window float64 `json:"window"`
	Level  float64 `json:"level"`
}

func (s *Server) handleWindowLevel(c web.C, w http.ResponseWriter, r *http.Request) {
	a := windowLevelArgs{Window: 255, Level: 127}
	if _, err := decodeBody(r, &a); err != nil {
		replyError(c, w, err)
		return
	}
	if err := s.session.WindowLevel(a.Window, a.Level); err != nil {
		replyError(c, w, err)
		return
	}
	writeMessage(w, "Window/Level adjustment applied successfully")
}

// === Analysis Handlers ===

func (s *Server) handlePixel(c web.C, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("x") == "" || q.Get("y") == "" {
		replyError(c, w, withMessage(errInputMissing, "x and y query parameters are required"))
		return
	}
	x, errX := strconv.Atoi(q.Get("x"))
	y, errY := strconv.Atoi(q.Get("y"))
	if errX != nil || errY != nil {
		replyError(c, w, withMessage(errMalformed, "x and y must be integers"))
		return
	}

	sample, err := s.session.Sample(x, y)
	if err != nil {
		replyError(c, w, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

type measureArgs struct {
	X1 *int `json:"x1"`
	Y1 *int `json:"y1"`
	X2 *int `json:"x2"`
	Y2 *int `json:"y2"`
}

func (s *Server) handleMeasure(c web.C, w http.ResponseWriter, r *http.Request) {
	var a measureArgs
	if _, err := decodeBody(r, &a); err != nil {
		replyError(c, w, err)
		return
	}
	if a.X1 == nil || a.Y1 == nil || a.X2 == nil || a.Y2 == nil {
		replyError(c, w, withMessage(errInputMissing, "x1, y1, x2 and y2 are required"))
		return
	}

	result, err := s.session.Measure(*a.X1, *a.Y1, *a.X2, *a.Y2)
	if err != nil {
		replyError(c, w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// === Artifact Handlers ===

func (s *Server) handleArtifact(c web.C, w http.ResponseWriter, r *http.Request) {
	name := c.URLParams["name"]
	path, err := s.store.Path(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("artifact %s has not been written yet", name))
			return
		}
		replyError(c, w, fmt.Errorf("failed to open artifact: %w", err))
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		replyError(c, w, fmt.Errorf("failed to stat artifact: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, name, stat.ModTime(), f)
}
