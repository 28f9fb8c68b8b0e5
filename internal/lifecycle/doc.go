// Package lifecycle turns a vendor install-base export into a lifecycle report.
//
// A run loads the first sheet of the input workbook, keeps the records whose
// selected lifecycle date falls strictly inside the requested window, sorts them
// into portfolio buckets, collapses duplicates per bucket and writes one block per
// bucket into each of the LDoS, EoSMD, EoPSD and LRD sheets of the output workbook.
//
// Each step is a plain function over []domain.AssetRecord; Engine strings them
// together and adds logging, tracing and metrics.
package lifecycle
