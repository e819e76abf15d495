package scripting

import (
	"context"
	"fmt"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/fields"
	"github.com/fieldlens/fieldlens/geometry"
	"github.com/fieldlens/fieldlens/navigation"
	"github.com/fieldlens/fieldlens/observability"
)

// BrokerDOM is a ViewerDOM that drives a viewer through the navigation
// broker and reads fields from a review, so scripts go through exactly the
// same validated path as interactive components.
type BrokerDOM struct {
	broker *navigation.Broker
	review *fields.Review
	log    observability.Logger
}

// NewBrokerDOM builds the DOM. log may be nil.
func NewBrokerDOM(b *navigation.Broker, r *fields.Review, log observability.Logger) *BrokerDOM {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &BrokerDOM{broker: b, review: r, log: log}
}

func (d *BrokerDOM) GoToPage(n int) {
	if err := d.broker.Publish(navigation.GoToPage{Page: n}); err != nil {
		d.log.Warn("script goToPage rejected", observability.Error("error", err))
	}
}

func (d *BrokerDOM) SetZoom(mode string, scale float64) {
	msg := navigation.SetZoom{Mode: coords.ZoomMode(mode), Scale: scale}
	if mode == "" && scale > 0 {
		msg.Mode = coords.ZoomCustom
	}
	if err := d.broker.Publish(msg); err != nil {
		d.log.Warn("script setZoom rejected", observability.Error("error", err))
	}
}

func (d *BrokerDOM) Field(name string) (FieldProxy, error) {
	for _, f := range d.review.Fields() {
		if f.Name == name || f.ID == name {
			return &fieldProxy{dom: d, id: f.ID}, nil
		}
	}
	return nil, fmt.Errorf("field %q not found", name)
}

func (d *BrokerDOM) Alert(message string) {
	d.log.Info("script alert", observability.String("message", message))
}

type fieldProxy struct {
	dom *BrokerDOM
	id  string
}

func (p *fieldProxy) Value() string {
	f, _ := p.dom.review.Field(p.id)
	return f.Value
}

func (p *fieldProxy) SetValue(value string) {
	if err := p.dom.review.SetValue(p.id, value); err != nil {
		p.dom.log.Warn("script value edit rejected",
			observability.String("field", p.id),
			observability.Error("error", err))
		return
	}
	// Scripted edits autosave like interactive ones.
	if err := p.dom.review.Save(context.Background(), p.id); err != nil {
		p.dom.log.Warn("script autosave failed",
			observability.String("field", p.id),
			observability.Error("error", err))
	}
}

func (p *fieldProxy) Regions() geometry.RegionSet {
	f, _ := p.dom.review.Field(p.id)
	return f.Regions()
}

func (p *fieldProxy) Navigate() {
	f, ok := p.dom.review.Field(p.id)
	if !ok || !f.HasRegions() {
		return
	}
	if err := p.dom.broker.Publish(navigation.NavigateToRegions{
		DocumentURL: f.AttachmentRef,
		Regions:     f.Regions(),
	}); err != nil {
		p.dom.log.Warn("script navigate rejected",
			observability.String("field", p.id),
			observability.Error("error", err))
	}
}
