// Package action holds the closed table of audited action names.
//
// Codes are small integers stored in the log row; names are the dotted
// strings exchanged with clients. The table is append-only: unassigned slots
// hold "reserved" so that new actions can be added to a group without
// renumbering anything already written.
package action
