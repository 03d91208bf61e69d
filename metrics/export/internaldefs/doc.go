// Package internaldefs holds the metric names and bucket boundaries shared by
// the Prometheus and OTel exporters.
//
// Both exporters read the same definitions, so a change here renames the
// metric everywhere at once.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
