package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBoundsImplausibleFullImageIsPlausible(t *testing.T) {
	b := Rect{Top: 0, Left: 0, Bottom: 100, Right: 200}
	assert.False(t, classifyBoundsImplausible(b, 1, 200, 100))
}

func TestClassifyBoundsImplausibleMagnitude(t *testing.T) {
	b := Rect{Top: 2000000, Left: 0, Bottom: 2000010, Right: 10}
	assert.True(t, classifyBoundsImplausible(b, 1, 200, 100))
}

func TestClassifyBoundsImplausibleInvertedRect(t *testing.T) {
	b := Rect{Top: 50, Left: 50, Bottom: 10, Right: 10}
	assert.True(t, classifyBoundsImplausible(b, 1, 200, 100))
}

func TestClassifyBoundsImplausibleLayerZeroCorruptionPattern(t *testing.T) {
	b := Rect{Top: 2000000, Left: 0, Bottom: 0, Right: 100}
	assert.True(t, classifyBoundsImplausible(b, 0, 200, 100))
}

func TestClassifyBoundsImplausiblePlainLayer(t *testing.T) {
	b := Rect{Top: 10, Left: 10, Bottom: 60, Right: 80}
	assert.False(t, classifyBoundsImplausible(b, 1, 200, 100))
}

func TestApplyTaggedBlockTySh(t *testing.T) {
	l := &Layer{}
	applyTaggedBlock(l, keyTySh, nil)
	assert.True(t, l.Features.HasText)
}

func TestApplyTaggedBlockAdjustmentByKnownKey(t *testing.T) {
	l := &Layer{}
	applyTaggedBlock(l, be32("levl"), nil)
	assert.True(t, l.Features.Adjustment)
}

func TestApplyTaggedBlockAdjustmentByPrefix(t *testing.T) {
	l := &Layer{}
	applyTaggedBlock(l, be32("adjX"), nil)
	assert.True(t, l.Features.Adjustment)
}

func TestApplyTaggedBlockSectionDivider(t *testing.T) {
	start := &Layer{}
	applyTaggedBlock(start, keylsct, []byte{0, 0, 0, 1})
	assert.True(t, start.Features.GroupStart)

	end := &Layer{}
	applyTaggedBlock(end, keylsct, []byte{0, 0, 0, 3})
	assert.True(t, end.Features.GroupEnd)
}

func TestApplyTaggedBlockUnicodeNameOverride(t *testing.T) {
	l := &Layer{Name: "legacy"}
	name := utf16beBytes("hello")
	payload := append(be32Bytes(uint32(len([]rune("hello")))), name...)
	applyTaggedBlock(l, keyluni, payload)
	assert.Equal(t, "hello", l.Name)
}

func utf16beBytes(s string) []byte {
	var out []byte
	for _, r := range s {
		out = append(out, byte(r>>8), byte(r))
	}
	return out
}

func TestLayerTypePriorityOrder(t *testing.T) {
	l := &Layer{}
	l.Features.HasText = true
	l.Features.SmartObject = true
	assert.Equal(t, LayerTypeText, l.Type())
}

func TestLayerTypeEmptyWhenNoFeaturesAndNoChannels(t *testing.T) {
	l := &Layer{}
	assert.Equal(t, LayerTypeEmpty, l.Type())
}

func TestIsBackgroundLayer(t *testing.T) {
	bg := &Layer{Flags: 0x04, Channels: []*ChannelRecord{{ID: 0}, {ID: 1}, {ID: 2}}}
	layers := []*Layer{bg, {}}
	assert.True(t, isBackgroundLayer(layers, 0, ColorModeRGB))
}

func TestIsBackgroundLayerRejectsAlphaChannel(t *testing.T) {
	// Same channel count as the document's RGB base (3), but one of them
	// is an alpha channel (negative id) rather than a color channel.
	bg := &Layer{Flags: 0x04, Channels: []*ChannelRecord{{ID: 0}, {ID: 1}, {ID: -1}}}
	layers := []*Layer{bg}
	assert.False(t, isBackgroundLayer(layers, 0, ColorModeRGB))
}

func TestFindTaggedBlockLocatesSecondBlock(t *testing.T) {
	var data []byte
	appendBlock := func(key uint32, payload []byte) {
		data = append(data, be32Bytes(sig8BIM)...)
		data = append(data, be32Bytes(key)...)
		data = append(data, be32Bytes(uint32(len(payload)))...)
		data = append(data, payload...)
		if len(payload)%2 != 0 {
			data = append(data, 0)
		}
	}
	appendBlock(be32("lyid"), []byte{0, 0, 0, 1})
	appendBlock(keyTySh, []byte{9, 9})

	payload, ok := findTaggedBlock(data, keyTySh)
	assert.True(t, ok)
	assert.Equal(t, []byte{9, 9}, payload)
}
