// Package stage defines the uniform contract pipeline stages implement and
// the batch runner that executes them.
//
// One invocation is one eligibility query feeding a bounded worker pool.
// Failures are classified through the services sentinels: row failures are
// counted and skipped so one bad article never stalls the batch, while
// configuration and infrastructure errors abort the invocation.
package stage
