// Package nvstore provides the non-volatile storage used for the portal
// configuration archive and the credential table.
//
// Two back-ends share the Store interface and differ only in how a
// Selector is interpreted:
//
//   - Flash: an offset-addressed flat region (4096 bytes by default,
//     erased state 0xFF) mirrored to an image file. Every transaction is
//     bounded to exactly Selector.Length bytes at Selector.Offset.
//   - Prefs: a key-addressed table in SQLite (via GORM). The offset is
//     ignored and the payload is stored and loaded whole under
//     Selector.Key.
//
// Records written by this module are framed: an 8-byte magic followed by
// a little-endian u16 holding the record size minus 8. LoadFramed reads
// the header first and then exactly the declared size, which is how the
// offset-addressed back-end learns the length of a record.
package nvstore
