// Package verifier implements signature enrollment and verification.
//
// Enroll runs image → preprocess → extract → store; Verify runs
// store → (image → preprocess → extract) → match. Both are thin: every
// decision lives in the matcher and every persistence rule in the store.
//
// Errors from any stage propagate unchanged in their chain, so callers can
// classify them with Kind:
//
//	image_load             the file could not be opened or decoded
//	insufficient_features  the capture produced no descriptors
//	not_found              no template is enrolled under the key
//	write                  the template could not be persisted
//	invalid_input          bad key, threshold or descriptor dimensions
//
// A failed verification is never reported as "not authentic".
package verifier
