// Package logstats reports aggregate statistics over nginx access logs kept
// in a MongoDB collection.
//
// The report has four parts: the total number of log documents, a count per
// HTTP method, the number of GET /status health probes, and the most frequent
// client IPs. All queries are read-only.
package logstats
