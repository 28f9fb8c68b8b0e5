// Package http implements the HTTP handlers of the report service. Handlers
// stay thin: they parse the multipart form, delegate to the services layer
// and stream the generated workbook or archive back.
//
// # Routes
//
//	GET  /api/reports/options   accepted parameter values
//	POST /api/reports/file      one workbook in, <name>_parsed.xlsx out
//	POST /api/reports/folder    many workbooks in, download.zip out
//	GET  /api/health[/live|/ready], /api/version
//
// # Report Options
//
// GET /api/reports/options returns the accepted values of every form field.
// The group_by list ("product_date", "product") is an extension of the
// report form. Clients that never send group_by get product_date, the only
// grouping the form offered before the extension.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Engine
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// All errors are written by apierrors.ErrorHandler as RFC 7807 Problem
// Details:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Validation Failed",
//	    "status": 400,
//	    "detail": "One or more request fields are invalid",
//	    "instance": "/api/reports/file"
//	}
//
// # Testing
//
// Handlers are tested with httptest and testify mocks of the service
// interfaces.
package http
