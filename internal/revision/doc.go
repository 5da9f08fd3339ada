// Package revision reviews generated drafts through the revise capability
// against an editorial checklist. The checklist is persisted verbatim;
// violations only block publishing in strict mode, and a review that
// approves everything without a single comment is flagged for a human.
package revision
