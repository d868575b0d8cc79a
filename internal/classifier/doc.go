// Package classifier defines the category classification contract and a
// library-backed nearest-neighbour implementation.
//
// The pipeline depends only on the Classifier interface: tokens plus the raw
// filename go in, a category with a confidence in [0,1] and ranked
// alternatives come out. A classifier that answers ("UNKNOWN", 0) is valid
// and means insufficient evidence. Calls are bounded by a deadline; the
// Timeout wrapper converts an overrun into a classifier-timeout error so the
// caller can schedule a retry.
package classifier
