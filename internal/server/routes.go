package server

import (
	"net/http"

	"github.com/zenazn/goji/web"
)

// Param documents one request parameter of a route.
type Param struct {
	Name        string      `json:"name"`
	In          string      `json:"in"` // "body", "query", "path" or "form"
	Type        string      `json:"type"`
	Default     interface{} `json:"default,omitempty"`
	Description string      `json:"description"`
}

// Route is one endpoint of the viewer API.
type Route struct {
	Method      string  `json:"method"`
	Pattern     string  `json:"path"`
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`

	handle func(*Server, web.C, http.ResponseWriter, *http.Request)
}

// routeTable returns every endpoint. GET / serves this table as JSON.
func routeTable() []Route {
	return []Route{
		{
			Method:      http.MethodGet,
			Pattern:     "/",
			Description: "List the available endpoints.",
			handle:      (*Server).handleIndex,
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/ping",
			Description: "Health check; reports whether an image is loaded.",
			handle:      (*Server).handlePing,
		},
		{
			Method:      http.MethodPost,
			Pattern:     "/upload",
			Description: "Upload a DICOM file as multipart form data. Replaces the current image and returns its metadata.",
			Params: []Param{
				{Name: "file", In: "form", Type: "file", Description: "DICOM Part 10 file"},
			},
			handle: (*Server).handleUpload,
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/metadata",
			Description: "Return PatientName, StudyDate, Modality and Dimensions of the loaded file.",
			handle:      (*Server).handleMetadata,
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/image",
			Description: "Return the current image as PNG and save it as current_image.png.",
			handle:      (*Server).handleImage,
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/image/grid",
			Description: "Return the current image with a coordinate grid drawn over it. Nothing is saved.",
			Params: []Param{
				{Name: "spacing", In: "query", Type: "integer", Default: 50, Description: "Pixels between grid lines"},
				{Name: "labels", In: "query", Type: "boolean", Default: true, Description: "Draw x,y labels at intersections"},
				{Name: "color", In: "query", Type: "string", Default: "#ff000080", Description: "Line color as #rrggbb or #rrggbbaa"},
			},
			handle: (*Server).handleGridImage,
		},
		{
			Method:      http.MethodPost,
			Pattern:     "/adjust",
			Description: "Scale brightness, then contrast about mid-gray. At least one parameter is required.",
			Params: []Param{
				{Name: "brightness", In: "body", Type: "number", Default: 1.0, Description: "Brightness factor; 1 leaves the image unchanged"},
				{Name: "contrast", In: "body", Type: "number", Default: 1.0, Description: "Contrast factor; 1 leaves the image unchanged"},
			},
			handle: (*Server).handleAdjust,
		},
		{
			Method:      http.MethodPost,
			Pattern:     "/crop",
			Description: "Keep the rectangle [x, x+width) x [y, y+height). The rectangle must lie inside the image.",
			Params: []Param{
				{Name: "x", In: "body", Type: "integer", Default: 0, Description: "Left edge (0-based)"},
				{Name: "y", In: "body", Type: "integer", Default: 0, Description: "Top edge (0-based)"},
				{Name: "width", In: "body", Type: "integer", Default: 100, Description: "Width in pixels"},
				{Name: "height", In: "body", Type: "integer", Default: 100, Description: "Height in pixels"},
			},
			handle: (*Server).handleCrop,
		},
		{
			Method:      http.MethodPost,
			Pattern:     "/zoom",
			Description: "Resize by a factor with nearest-neighbor sampling.",
			Params: []Param{
				{Name: "zoom_factor", In: "body", Type: "number", Default: 1.0, Description: "Scale factor, > 0; the result may not exceed 2^26 pixels"},
			},
			handle: (*Server).handleZoom,
		},
		{
			Method:      http.MethodPost,
			Pattern:     "/pan",
			Description: "Shift the image content; uncovered pixels are black.",
			Params: []Param{
				{Name: "dx", In: "body", Type: "number", Default: 0.0, Description: "Horizontal pan, positive moves content left"},
				{Name: "dy", In: "body", Type: "number", Default: 0.0, Description: "Vertical pan, positive moves content up"},
			},
			handle: (*Server).handlePan,
		},
		{
			Method:      http.MethodPost,
			Pattern:     "/window_level",
			Description: "Clip pixel values to [level - window/2, level + window/2].",
			Params: []Param{
				{Name: "window", In: "body", Type: "number", Default: 255.0, Description: "Window width, >= 0"},
				{Name: "level", In: "body", Type: "number", Default: 127.0, Description: "Window center"},
			},
			handle: (*Server).handleWindowLevel,
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/pixel",
			Description: "Sample the current image at one coordinate.",
			Params: []Param{
				{Name: "x", In: "query", Type: "integer", Description: "X coordinate (0-based)"},
				{Name: "y", In: "query", Type: "integer", Description: "Y coordinate (0-based)"},
			},
			handle: (*Server).handlePixel,
		},
		{
			Method:      http.MethodPost,
			Pattern:     "/measure",
			Description: "Measure the distance between two points; includes millimeters when the file carries pixel spacing.",
			Params: []Param{
				{Name: "x1", In: "body", Type: "integer", Description: "Start X"},
				{Name: "y1", In: "body", Type: "integer", Description: "Start Y"},
				{Name: "x2", In: "body", Type: "integer", Description: "End X"},
				{Name: "y2", In: "body", Type: "integer", Description: "End Y"},
			},
			handle: (*Server).handleMeasure,
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/artifacts/:name",
			Description: "Download the last artifact written under name, e.g. cropped_image.png.",
			Params: []Param{
				{Name: "name", In: "path", Type: "string", Description: "Artifact file name"},
			},
			handle: (*Server).handleArtifact,
		},
	}
}
