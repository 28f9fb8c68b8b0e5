// Package batch runs the lifecycle engine over many workbooks at once.
//
// Jobs run on a bounded errgroup. A failing file is recorded in its
// JobResult and never cancels its siblings; Run only returns an error when
// every file failed.
package batch
