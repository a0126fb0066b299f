package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/tree"
)

const (
	boxW   = 240.0
	boxH   = 52.0
	colGap = 56.0
	rowGap = 12.0
	margin = 24.0
	padX   = 10.0

	// MaxRows bounds the image height.
	MaxRows = 1500
)

var ErrTooLarge = errors.New("chart: tree too large to render")

var (
	colBackground = color.White
	colBox        = color.NRGBA{R: 0xf6, G: 0xf4, B: 0xee, A: 0xff}
	colBorder     = color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	colBrickWall  = color.NRGBA{R: 0xb0, G: 0x30, B: 0x30, A: 0xff}
	colEdge       = color.NRGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff}
	colText       = color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	colMuted      = color.NRGBA{R: 0x90, G: 0x90, B: 0x90, A: 0xff}
)

type Options struct {
	// FontPath is a TrueType file; the built-in bitmap face is used without one.
	FontPath string
	FontSize float64
}

// Renderer draws a tree forest as a left-to-right chart: the root couple on
// the left, each generation one column further right.
type Renderer struct {
	face font.Face
}

func New(opts Options) (*Renderer, error) {
	if strings.TrimSpace(opts.FontPath) == "" {
		return &Renderer{face: basicfont.Face7x13}, nil
	}
	face, err := loadFontFace(opts.FontPath, opts.FontSize)
	if err != nil {
		return nil, err
	}
	return &Renderer{face: face}, nil
}

func loadFontFace(path string, size float64) (font.Face, error) {
	if size <= 0 {
		size = 13
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chart: read font: %w", err)
	}
	f, err := truetype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("chart: parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull}), nil
}

type placed struct {
	n    *tree.Node
	x, y float64
	kids []*placed
}

type layout struct {
	rows     int
	maxDepth int
}

func (l *layout) place(n *tree.Node, depth int) (*placed, error) {
	p := &placed{n: n, x: margin + float64(depth)*(boxW+colGap)}
	if depth > l.maxDepth {
		l.maxDepth = depth
	}
	for _, k := range n.Children {
		kp, err := l.place(k, depth+1)
		if err != nil {
			return nil, err
		}
		p.kids = append(p.kids, kp)
	}
	if len(p.kids) == 0 {
		if l.rows >= MaxRows {
			return nil, ErrTooLarge
		}
		p.y = margin + float64(l.rows)*(boxH+rowGap)
		l.rows++
		return p, nil
	}
	p.y = (p.kids[0].y + p.kids[len(p.kids)-1].y) / 2
	return p, nil
}

// RenderPNG writes root as a PNG image.
func (r *Renderer) RenderPNG(w io.Writer, root *tree.Node) error {
	if root == nil {
		return errors.New("chart: nil tree")
	}
	var l layout
	top, err := l.place(root, 0)
	if err != nil {
		return err
	}
	width := int(2*margin + float64(l.maxDepth+1)*(boxW+colGap) - colGap)
	height := int(2*margin + float64(l.rows)*(boxH+rowGap) - rowGap)

	dc := gg.NewContext(width, height)
	dc.SetColor(colBackground)
	dc.Clear()
	dc.SetFontFace(r.face)

	r.drawEdges(dc, top)
	r.drawBoxes(dc, top)
	return dc.EncodePNG(w)
}

func (r *Renderer) drawEdges(dc *gg.Context, p *placed) {
	if len(p.kids) == 0 {
		return
	}
	fromX, fromY := p.x+boxW, p.y+boxH/2
	midX := fromX + colGap/2
	dc.SetColor(colEdge)
	dc.SetLineWidth(1.2)
	for _, k := range p.kids {
		toY := k.y + boxH/2
		dc.MoveTo(fromX, fromY)
		dc.LineTo(midX, fromY)
		dc.LineTo(midX, toY)
		dc.LineTo(k.x, toY)
		dc.Stroke()
		r.drawEdges(dc, k)
	}
}

func (r *Renderer) drawBoxes(dc *gg.Context, p *placed) {
	n := p.n
	dc.DrawRoundedRectangle(p.x, p.y, boxW, boxH, 6)
	dc.SetColor(colBox)
	dc.FillPreserve()
	border, lw := colBorder, 1.0
	if brickWall(n.A) || brickWall(n.B) {
		border, lw = colBrickWall, 2.0
	}
	dc.SetColor(border)
	dc.SetLineWidth(lw)
	dc.Stroke()

	r.drawSlot(dc, n.A, p.x+padX, p.y+boxH/2-6)
	r.drawSlot(dc, n.B, p.x+padX, p.y+boxH/2+14)

	if n.Expandable {
		dc.SetColor(colEdge)
		dc.DrawStringAnchored("+", p.x+boxW-padX, p.y+boxH/2, 0.5, 0.5)
	}
	for _, k := range p.kids {
		r.drawBoxes(dc, k)
	}
}

func (r *Renderer) drawSlot(dc *gg.Context, s tree.Slot, x, y float64) {
	if s.Person == nil {
		return
	}
	text, muted := label(s)
	if muted {
		dc.SetColor(colMuted)
	} else {
		dc.SetColor(colText)
	}
	dc.DrawString(truncate(dc, text, boxW-3*padX), x, y)
}

// label is "Name (1850-1920)". Placeholders render as their id.
func label(s tree.Slot) (string, bool) {
	v := s.Person
	if v.Placeholder || s.Kind == person.RefNotLoaded.String() {
		return "[" + v.ID.String() + "]", true
	}
	name := v.DisplayName
	birth, death := year(v.BirthDate), year(v.DeathDate)
	switch {
	case birth != "" || death != "":
		name += " (" + birth + "-" + death + ")"
	case v.Living:
		name += " (living)"
	}
	return name, false
}

func year(date string) string {
	if y := person.Year(date); y > 0 {
		return strconv.Itoa(y)
	}
	return ""
}

func brickWall(s tree.Slot) bool { return s.Person != nil && s.Person.BrickWall }

func truncate(dc *gg.Context, s string, max float64) string {
	if w, _ := dc.MeasureString(s); w <= max {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		if w, _ := dc.MeasureString(string(runes) + "..."); w <= max {
			break
		}
	}
	return string(runes) + "..."
}
