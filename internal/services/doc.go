// Package services implements the business layer between the HTTP handlers
// and the report engine.
//
// # Available Services
//
//	- ReportService: stages uploads, runs the lifecycle engine for one file or
//	  a batch, and packages the result as an xlsx or download.zip
//	- HealthService: liveness, readiness of the staging directories, version
//
// # Resource Lifetime
//
// Generated reports live in a per-request workspace. Handlers stream the
// file and then Close the report, which removes the workspace:
//
//	report, err := svc.GenerateFile(ctx, upload, name, params)
//	if err != nil {
//	    return err
//	}
//	defer report.Close()
//	http.ServeFile(w, r, report.Path)
//
// # Error Handling
//
// Engine errors (*lifecycle.LoadError, *lifecycle.WriteError) and staging
// errors (files.ErrUnsupportedFile) are returned unchanged so the transport
// layer can map them to problem responses.
package services
