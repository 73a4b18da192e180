// Package metrics counts pipeline outcomes in a private Prometheus registry
// and writes them as a node-exporter textfile after each run.
package metrics
