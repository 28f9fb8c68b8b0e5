// Package shared holds code used across packages that belongs to no single
// layer.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- NewTestLogger: an slog logger that buffers records for assertions
//	- WriteInventory: builds install base workbooks with excelize
//	- ReadSheet, BlockRows: read generated reports back for checks
//
// testutil must only be imported from _test.go files.
package shared
