package dryrun

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// No library in the reference corpus renders raw ANSI escape sequences
// to SVG (lipgloss/termenv only produce terminal output, not a static
// image format), so this is a small hand-rolled converter rather than a
// wired dependency — see DESIGN.md.

const (
	svgCharWidth  = 8
	svgLineHeight = 18
	svgFontSize   = 14
)

var ansiPalette = map[int]string{
	30: "#000000", 31: "#cc0000", 32: "#4e9a06", 33: "#c4a000",
	34: "#3465a4", 35: "#75507b", 36: "#06989a", 37: "#d3d7cf",
	90: "#555753", 91: "#ef2929", 92: "#8ae234", 93: "#fce94f",
	94: "#729fcf", 95: "#ad7fa8", 96: "#34e2e2", 97: "#eeeeec",
}

type styledRun struct {
	text  string
	color string
	bold  bool
}

// ansiToSVG renders combined stdout+stderr ANSI output (as produced by
// a colorized dry-run pass) into a standalone SVG snapshot suitable for
// uploading as a gist and embedding in a check-run body.
func ansiToSVG(output string) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")

	var body strings.Builder
	maxWidth := 0
	for i, line := range lines {
		runs := parseANSILine(line)
		width := 0
		var x float64
		for _, run := range runs {
			width += len(run.text)
			fill := run.color
			if fill == "" {
				fill = "#d3d7cf"
			}
			weight := "normal"
			if run.bold {
				weight = "bold"
			}
			fmt.Fprintf(&body, `<text x="%.1f" y="%d" font-family="monospace" font-size="%d" font-weight="%s" fill="%s" xml:space="preserve">%s</text>`,
				x, (i+1)*svgLineHeight, svgFontSize, weight, fill, html.EscapeString(run.text))
			x += float64(len(run.text) * svgCharWidth)
		}
		if width > maxWidth {
			maxWidth = width
		}
	}

	w := maxWidth*svgCharWidth + 20
	h := len(lines)*svgLineHeight + 20
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="100%%" height="100%%" fill="#1d1f21"/>%s</svg>`,
		w, h, body.String())
}

// parseANSILine splits one line of text on SGR escape sequences,
// tracking foreground color and bold state across runs.
func parseANSILine(line string) []styledRun {
	var runs []styledRun
	var cur styledRun
	i := 0
	for i < len(line) {
		if line[i] == 0x1b && i+1 < len(line) && line[i+1] == '[' {
			end := strings.IndexByte(line[i:], 'm')
			if end == -1 {
				break
			}
			codes := line[i+2 : i+end]
			if cur.text != "" {
				runs = append(runs, cur)
				cur = styledRun{color: cur.color, bold: cur.bold}
			}
			applySGR(&cur, codes)
			i += end + 1
			continue
		}
		cur.text += string(line[i])
		i++
	}
	if cur.text != "" {
		runs = append(runs, cur)
	}
	return runs
}

func applySGR(cur *styledRun, codes string) {
	if codes == "" {
		codes = "0"
	}
	for _, part := range strings.Split(codes, ";") {
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		switch {
		case n == 0:
			cur.color = ""
			cur.bold = false
		case n == 1:
			cur.bold = true
		case n >= 30 && n <= 37, n >= 90 && n <= 97:
			cur.color = ansiPalette[n]
		}
	}
}
