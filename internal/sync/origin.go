package sync

import "context"

type originTabKey struct{}

// WithOriginTab tags the context with the client tab id that initiated the
// operation. Server-side publishers attribute their broadcasts to it so
// the originating tab can filter its own events.
func WithOriginTab(ctx context.Context, tabID string) context.Context {
	if tabID == "" {
		return ctx
	}
	return context.WithValue(ctx, originTabKey{}, tabID)
}

// OriginTab returns the tab id recorded by WithOriginTab, empty if none.
func OriginTab(ctx context.Context) string {
	tabID, _ := ctx.Value(originTabKey{}).(string)
	return tabID
}
