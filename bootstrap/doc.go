// Package bootstrap runs a transcriptcheck process: it validates the typed
// configuration, starts registered components in order, runs the configure
// callbacks that wire the business layer, and shuts everything down in
// reverse order on SIGINT/SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(ledgerComponent)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    // build the validator from started components
//	    return nil
//	})
//	err = app.Run(ctx)
//
// Long-running modes (serve, worker) use Run. One-shot commands (validate,
// index) use RunTask, which cancels the task on a signal.
package bootstrap
