package services

import "errors"

// Report service errors
var (
	ErrNoUploads   = errors.New("no files uploaded")
	ErrNoWorkbooks = errors.New("no workbook among the uploaded files")
)
