// Package bootstrap wires a typed config, a logger and a component
// registry into an App with a uniform start, wait, stop lifecycle.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(db)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error { ... })
//	return app.Run(ctx)
package bootstrap
