// Package server exposes the DICOM viewer session over HTTP.
//
// Routing uses goji's web.Mux with three middlewares, outermost first:
// request IDs, one log line per request, and panic recovery. The mux is
// wrapped in a CORS handler whose allowed origins come from configuration.
//
// # Endpoints
//
// Study:
//   - POST /upload: multipart "file" field; replaces the current image
//   - GET /metadata: PatientName, StudyDate, Modality, Dimensions
//   - GET /image: current image as PNG
//   - GET /image/grid: current image with a coordinate grid, not saved
//
// Transforms (JSON body, every field optional):
//   - POST /adjust: brightness, contrast (default 1.0; body required)
//   - POST /crop: x, y, width, height (default 0, 0, 100, 100)
//   - POST /zoom: zoom_factor (default 1.0)
//   - POST /pan: dx, dy (default 0)
//   - POST /window_level: window, level (default 255, 127)
//
// Analysis and artifacts:
//   - GET /pixel?x=&y=: value, RGB, hex and HSL at a coordinate
//   - POST /measure: x1, y1, x2, y2; distance in pixels and millimeters
//   - GET /artifacts/:name: last PNG written by an operation
//   - GET /ping, GET /: health check and endpoint catalog
//
// # Errors
//
// Every failure is a JSON object {"error": "..."}. Missing input, malformed
// JSON, operations before an upload and out-of-range parameters are 400. A
// file that is not a readable DICOM image is 422; an oversized upload is 413.
// Anything else, such as a failed artifact write, is 500.
//
// # Example Usage
//
//	store, _ := session.NewArtifactStore("output")
//	sess, _ := session.New(imaging.Ops{}, store, "uploads")
//	srv := server.New(sess, store, server.Options{})
//	if err := srv.Run(ctx, "localhost:5000"); err != nil {
//	    log.Fatal(err)
//	}
package server
