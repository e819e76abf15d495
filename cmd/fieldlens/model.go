package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/fields"
	"github.com/fieldlens/fieldlens/geometry"
	"github.com/fieldlens/fieldlens/navigation"
	"github.com/fieldlens/fieldlens/viewer"
)

const sidebarWidth = 38

type fieldItem struct {
	f fields.Field
}

func (i fieldItem) Title() string {
	marker := "  "
	if i.f.HasRegions() {
		marker = "◈ "
	}
	return marker + fields.DisplayName(i.f.Name)
}

func (i fieldItem) Description() string {
	section := i.f.Section
	if section == "" {
		section = fields.Uncategorized
	}
	return fmt.Sprintf("%s · %.0f%% · %s", i.f.Value, i.f.Confidence*100, section)
}

func (i fieldItem) FilterValue() string {
	return i.f.Name + " " + fields.DisplayName(i.f.Name) + " " + i.f.Value
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// errBox carries asynchronous pipeline errors into the render loop.
type errBox struct {
	mu   sync.Mutex
	last string
}

func (b *errBox) set(e *viewer.Error) {
	b.mu.Lock()
	b.last = e.Error()
	b.mu.Unlock()
}

func (b *errBox) get() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

type model struct {
	width, height int

	docURL   string
	review   *fields.Review
	broker   *navigation.Broker
	pipeline *viewer.Pipeline
	base     *cellSurface
	overlay  *cellSurface
	errs     *errBox

	l        list.Model
	input    textinput.Model
	entering bool
	status   string
}

func newModel(docURL string, review *fields.Review, broker *navigation.Broker,
	pipeline *viewer.Pipeline, base, overlay *cellSurface, errs *errBox) model {

	var items []list.Item
	for _, section := range fields.GroupBySection(review.Fields()) {
		for _, f := range section.Fields {
			items = append(items, fieldItem{f: f})
		}
	}

	d := list.NewDefaultDelegate()
	l := list.New(items, d, 0, 0)
	l.Title = "Fields"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	in := textinput.New()
	in.Placeholder = "D(page,x1,y1,x2,y2,x3,y3,x4,y4);…"
	in.CharLimit = 0

	return model{
		docURL:   docURL,
		review:   review,
		broker:   broker,
		pipeline: pipeline,
		base:     base,
		overlay:  overlay,
		errs:     errs,
		l:        l,
		input:    in,
		status:   "enter: show field · t: read region · ←/→: page · +/-: zoom · f/a: fit/actual · m: coordinates · c: copy · q: quit",
	}
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.l.SetSize(sidebarWidth-2, m.height-4)
		pw, ph := m.pageArea()
		m.base.Resize(pw, ph)
		m.overlay.Resize(pw, ph)
		// Re-render for the new container size.
		m.publish(navigation.SetZoom{Mode: m.pipeline.State().Mode, Scale: m.pipeline.State().Scale})
		return m, nil

	case tickMsg:
		return m, tick()

	case tea.KeyMsg:
		if m.entering {
			return m.updateManualEntry(msg)
		}
		if m.l.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			m.navigateSelected()
			return m, nil
		case "left":
			m.publish(navigation.GoToPage{Page: m.pipeline.State().Page - 1})
			return m, nil
		case "right":
			m.publish(navigation.GoToPage{Page: m.pipeline.State().Page + 1})
			return m, nil
		case "+", "=":
			m.zoomBy(1.25)
			return m, nil
		case "-":
			m.zoomBy(1 / 1.25)
			return m, nil
		case "f":
			m.publish(navigation.SetZoom{Mode: coords.ZoomFitWidth})
			return m, nil
		case "a":
			m.publish(navigation.SetZoom{Mode: coords.ZoomActualSize})
			return m, nil
		case "c":
			m.copyCoordinates()
			return m, nil
		case "t":
			m.readSelected()
			return m, nil
		case "m":
			m.entering = true
			m.input.SetValue("")
			return m, m.input.Focus()
		case "s":
			st := m.review.Stats()
			m.status = fmt.Sprintf("%d fields · %d with regions · avg confidence %.0f%%",
				st.Total, st.WithRegions, st.AvgConfidence*100)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.l, cmd = m.l.Update(msg)
	return m, cmd
}

func (m model) updateManualEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.entering = false
		return m, nil
	case "enter":
		m.entering = false
		rs := geometry.DecodeAll(m.input.Value())
		if len(rs) == 0 {
			m.status = "no valid regions in input"
			return m, nil
		}
		m.publish(navigation.NavigateToRegions{DocumentURL: m.docURL, Regions: rs})
		m.status = fmt.Sprintf("navigated to %d region(s) on page %d", len(rs), rs[0].Page)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) navigateSelected() {
	item, ok := m.l.SelectedItem().(fieldItem)
	if !ok {
		return
	}
	f := item.f
	if !f.HasRegions() {
		m.status = fmt.Sprintf("%s has no regions", fields.DisplayName(f.Name))
		return
	}
	url := f.AttachmentRef
	if url == "" {
		url = m.docURL
	}
	m.publish(navigation.NavigateToRegions{DocumentURL: url, Regions: f.Regions()})
	m.status = fmt.Sprintf("%s → page %d", fields.DisplayName(f.Name), f.Regions()[0].Page)
}

// readSelected pulls the document text under the selected field's first
// region, through the text layer or the recognition fallback.
func (m *model) readSelected() {
	item, ok := m.l.SelectedItem().(fieldItem)
	if !ok || !item.f.HasRegions() {
		m.status = "nothing to read"
		return
	}
	text, err := m.pipeline.TextInRegion(context.Background(), item.f.Regions()[0])
	switch {
	case err != nil:
		m.status = err.Error()
	case text == "":
		m.status = "no text in region"
	default:
		m.status = text
	}
}

func (m *model) copyCoordinates() {
	item, ok := m.l.SelectedItem().(fieldItem)
	if !ok || !item.f.HasRegions() {
		m.status = "nothing to copy"
		return
	}
	m.status = geometry.EncodeAll(item.f.Regions())
}

func (m *model) zoomBy(factor float64) {
	scale := m.pipeline.State().Scale * factor
	if scale <= 0 {
		scale = 0.05
	}
	m.publish(navigation.SetZoom{Mode: coords.ZoomCustom, Scale: scale})
}

func (m *model) publish(msg navigation.Message) {
	if err := m.broker.Publish(msg); err != nil {
		m.status = err.Error()
	}
}

func (m model) pageArea() (w, h int) {
	w = m.width - sidebarWidth - 4
	h = m.height - 5
	if w < 10 {
		w = 10
	}
	if h < 5 {
		h = 5
	}
	return w, h
}
