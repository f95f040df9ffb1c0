// Package sqlite implements background snapshot persistence on SQLite.
//
// It provides the SnapshotStore used by the API server and CLI tools, and
// owns connection setup (pragmas) and schema migrations. The estimation
// core never imports this package; it talks to storage through the
// bgestimate.SnapshotStore interface.
package sqlite
