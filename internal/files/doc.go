// Package files handles the on-disk side of report requests.
//
// Stager reserves a uuid-named workspace under media/unparsed and
// media/parsed for each request, stores uploads there and removes both
// directories once the response has been sent.
//
// Discovery lists the workbooks in a folder for batch runs, and ZipFiles
// packages batch outputs as download.zip.
//
// Example usage:
//
//	stager := files.NewStager(paths, logger)
//	ws, err := stager.NewWorkspace()
//	if err != nil {
//	    return err
//	}
//	defer ws.Cleanup()
//
//	input, err := ws.Save(header.Filename, upload)
//	output := ws.OutputPath(files.FormatFileName(header.Filename))
package files
