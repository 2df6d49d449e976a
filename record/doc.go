// Package record defines the structured data that flows between plugins:
// schemas, data kinds, time-ordered chunks of records, and the primitives the
// streaming core relies on (endtime, row-wise merge, containment partition).
//
// Every record with a "time" field has an exclusive upper time bound. It is
// read from an "endtime" field when present, computed as time + length*dt when
// the record describes a sampled interval, and equals time otherwise.
package record
