// Package judging scores ingested documents through the judge capability and
// creates the article row carrying the WRITE/SKIP decision. Scores are always
// persisted, even for SKIP, so thresholds can be re-audited without
// re-judging.
package judging
