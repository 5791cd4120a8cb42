// Package bootstrap runs a flowkit binary: it applies and validates the
// typed configuration, initializes logging, starts registered components
// (pipelines, the HTTP server) in order and stops them in reverse on
// shutdown.
//
//	app, err := bootstrap.NewApp(cfg)
//	if err != nil {
//	    return err
//	}
//	app.RegisterComponent(p)
//	return app.RunTask(ctx, func(ctx context.Context) error {
//	    return pipeline.Feed(ctx, p, source)
//	})
package bootstrap
