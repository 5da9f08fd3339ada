// Package textutil provides the text processing shared by the pipeline:
// URL canonicalization and hashing for deduplication, normalized title keys,
// token fingerprints with cosine similarity, token overlap statistics for
// draft fidelity checks, and filename sanitization.
//
// Tokenization folds diacritics, lowercases, splits on non-alphanumeric
// characters, and drops tokens shorter than 3 characters.
package textutil
