package client

import "context"

type appCtxKey struct{}

// WithApp кладет приложение в контекст команды
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appCtxKey{}, app)
}

// FromContext достает приложение из контекста; nil, если его там нет
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appCtxKey{}).(*App)
	return app
}
