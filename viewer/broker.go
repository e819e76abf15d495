package viewer

import (
	"context"

	"github.com/fieldlens/fieldlens/navigation"
)

// Attach subscribes the pipeline to a navigation broker so field-selection
// components can drive it without holding a reference. For a region
// navigation naming a different document, the document is loaded first and
// navigation applies only after the load succeeds.
func (p *Pipeline) Attach(ctx context.Context, b *navigation.Broker) *navigation.Subscription {
	return b.Subscribe(func(m navigation.Message) {
		switch m := m.(type) {
		case navigation.LoadDocument:
			// Failure already reported through the error handler.
			_ = p.LoadDocument(ctx, m.URL)
		case navigation.NavigateToRegions:
			if m.DocumentURL != "" && m.DocumentURL != p.State().URL {
				if err := p.LoadDocument(ctx, m.DocumentURL); err != nil {
					return
				}
			}
			p.Navigate(ctx, m.Regions)
		case navigation.GoToPage:
			p.GoToPage(ctx, m.Page)
		case navigation.SetZoom:
			p.SetZoom(ctx, m.Mode, m.Scale)
		}
	})
}
