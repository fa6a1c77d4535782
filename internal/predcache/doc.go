// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

// Package predcache persists computed prediction sets in BadgerDB, keyed by
// (decade, profile id). At most one entry exists per key; writes replace the
// whole value atomically inside a single Badger transaction, so readers never
// observe a partially written entry.
//
// Values are normalized at the write boundary: every nested value is reduced
// to plain maps, slices, and JSON primitives before encoding, so the stored
// blob stays engine-agnostic and independently readable.
//
// A cache miss is not an error to callers deciding whether to refresh; it is
// surfaced as the ErrNotFound sentinel and counts as stale.
package predcache
