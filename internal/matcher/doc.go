// Package matcher compares two descriptor sets and decides whether they come
// from the same signer.
//
// The default score is the mean cosine similarity over every (reference,
// candidate) descriptor pair. A signature is authentic when that score is
// strictly greater than the threshold (0.7 unless configured). The score does
// not depend on descriptor order and is identical when the two sets are swapped.
//
// The optional ratio aggregation pairs each candidate descriptor with its
// nearest reference descriptor, keeps the pair only when it passes Lowe's ratio
// test, and averages over all candidates. It is not symmetric.
package matcher
