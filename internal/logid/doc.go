// Package logid wraps the xid identifier scheme used for log entries.
//
// An xid is 12 bytes: a 4-byte big-endian unix timestamp in seconds, a 3-byte
// machine id, a 2-byte process id and a 3-byte counter. Byte-wise comparison
// therefore orders ids by creation second, which is what the recent-window
// query relies on: Floor builds the smallest id of a given second.
package logid
