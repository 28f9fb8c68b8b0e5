// Package app wires configuration, telemetry, the report services and the
// HTTP router into a runnable server.
//
// # Initialization Flow
//
//	1. The caller loads configuration and creates the logger and OTel providers
//	2. NewApplication resolves and creates the staging directories
//	3. The lifecycle engine, batch runner and services are built
//	4. The chi router is assembled with the middleware chain
//	5. Run serves until SIGINT, SIGTERM or context cancellation
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger, providers)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Stop drains in-flight requests within Server.ShutdownTimeout and then
// flushes the telemetry providers. The app never calls os.Exit.
package app
