// Package api is the HTTP adapter over the pipeline. It translates
// requests into service calls and failures into the shared error envelope;
// no business rules live here.
package api
