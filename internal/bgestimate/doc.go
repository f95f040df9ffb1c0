// Package bgestimate owns the background estimation core.
//
// Responsibilities: per-tile robust statistics over a source image
// (the stats grid), reconstruction of a full-resolution background
// surface under a selectable interpolation style, and snapshot
// persistence of fitted models.
//
// Dependency rule: this package may depend on internal/imaging, but
// never on the API or storage layers. No SQL/database code is allowed
// in this package; persistence goes through the SnapshotStore interface.
package bgestimate
