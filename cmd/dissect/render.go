package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/dissector"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	layerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#98FB98"))

	attrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// usePlainStyles drops colors and padding for output that is not a
// terminal.
func usePlainStyles() {
	plain := lipgloss.NewStyle()
	titleStyle = plain
	layerStyle = plain
	attrStyle = plain
	tagStyle = plain
	valueStyle = plain
	errorStyle = plain
	helpStyle = plain
}

// parseHex accepts hex digits separated by optional spaces or colons.
func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(s)
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse hex: %w", err)
	}
	return b, nil
}

func renderFrame(tokens token.Interner, f *dissector.Frame) string {
	if f == nil {
		return errorStyle.Render("skipped")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Frame %d", f.Index)))
	b.WriteString(" ")
	b.WriteString(helpStyle.Render(f.ID.String()))
	b.WriteString("\n")
	renderNode(&b, tokens, f.Root, 0)
	for _, e := range f.Errors {
		b.WriteString(errorStyle.Render("error: " + e.Error()))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderNode(b *strings.Builder, tokens token.Interner, n *dissector.Node, indent int) {
	pad := strings.Repeat("  ", indent)
	renderLayer(b, tokens, n.Layer, pad)
	for _, c := range n.Children {
		renderNode(b, tokens, c, indent+1)
	}
}

func renderLayer(b *strings.Builder, tokens token.Interner, l *layer.Layer, pad string) {
	b.WriteString(pad)
	b.WriteString(layerStyle.Render(tokens.String(l.ID())))
	for _, t := range l.Tags() {
		b.WriteString(" ")
		b.WriteString(tagStyle.Render(tokens.String(t)))
	}
	b.WriteString("\n")

	// The first header is the layer flag itself. Enum values show only
	// when they match.
	enumValue := tokens.Literal(attr.EnumValueType)
	for _, a := range l.Attrs() {
		if a.ID() == l.ID() {
			continue
		}
		v, err := a.Value()
		if match, ok := v.Bool(); a.Type() == enumValue && err == nil && ok && !match {
			continue
		}
		b.WriteString(pad)
		b.WriteString("  ")
		b.WriteString(attrStyle.Render(tokens.String(a.ID())))
		b.WriteString(" = ")
		if err != nil {
			b.WriteString(errorStyle.Render(err.Error()))
		} else {
			b.WriteString(valueStyle.Render(v.String()))
		}
		b.WriteString("\n")
	}
	if p := l.Payload(); len(p) > 0 {
		b.WriteString(pad)
		b.WriteString(helpStyle.Render(fmt.Sprintf("  payload %d bytes", len(p))))
		b.WriteString("\n")
	}
}
