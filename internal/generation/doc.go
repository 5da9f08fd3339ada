// Package generation drafts articles for judged WRITE documents through the
// generate capability. Drafts are gated on source fidelity: a too-short
// source or a draft that shares too little vocabulary with it is recorded as
// a content-quality failure, distinct from transport trouble.
package generation
