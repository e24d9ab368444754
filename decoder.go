package psd

import "github.com/pkg/errors"

// Document is a fully parsed PSD/PSB file: its header, color-mode data,
// image resources, layer tree, and flattened composite.
type Document struct {
	header        header
	ColorModeData []byte
	Resources     []ImageResource
	Layers        []*Layer
	HasTransparency bool

	composite *Composite
}

func (d *Document) Width() int           { return int(d.header.width) }
func (d *Document) Height() int          { return int(d.header.height) }
func (d *Document) ColorMode() ColorMode { return d.header.mode }
func (d *Document) Depth() uint16        { return d.header.depth }
func (d *Document) ChannelCount() int    { return int(d.header.channels) }
func (d *Document) IsLargeDocument() bool { return d.header.isLarge }

// Resource returns the first image resource with the given id.
func (d *Document) Resource(id uint16) (ImageResource, bool) {
	for _, r := range d.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return ImageResource{}, false
}

// TextLayers returns every layer classified as a text layer.
func (d *Document) TextLayers() []*Layer {
	var out []*Layer
	for _, l := range d.Layers {
		if l.Type() == LayerTypeText {
			out = append(out, l)
		}
	}
	return out
}

// parseDocument runs the full parse pipeline: header, color mode data,
// image resources, layer and mask info, then the flattened composite.
func parseDocument(s *source) (*Document, error) {
	h, err := parseHeader(s)
	if err != nil {
		return nil, errors.Wrap(err, "psd: header")
	}

	cmData, err := parseColorModeData(s)
	if err != nil {
		return nil, errors.Wrap(err, "psd: color mode data")
	}

	resources, err := parseResources(s)
	if err != nil {
		return nil, errors.Wrap(err, "psd: image resources")
	}

	lm, err := parseLayerAndMaskInfo(s, h, s.size)
	if err != nil {
		return nil, errors.Wrap(err, "psd: layer and mask info")
	}

	composite, err := parseComposite(s, h)
	if err != nil {
		return nil, errors.Wrap(err, "psd: composite image data")
	}

	return &Document{
		header:          h,
		ColorModeData:   cmData,
		Resources:       resources,
		Layers:          lm.layers,
		HasTransparency: lm.hasTransparencePlane,
		composite:       composite,
	}, nil
}
