package ruleset

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func remarshal(src, dst interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Diff is one field-level discrepancy between a declared and observed
// Wire value, keyed by its JSON-path-like field name.
type Diff struct {
	Field    string
	Declared interface{}
	Observed interface{}
}

// Equal compares two normalized rulesets structurally: if Compare
// returns no diffs, the rulesets match up to the noise fields FromRaw
// already stripped.
func Equal(declared, observed Wire) bool {
	return len(Compare(declared, observed)) == 0
}

// Compare structurally diffs declared against observed, both already
// projected into the normalized Wire shape by Normalize/FromRaw. Diffs
// come out in the order target, enforcement, ref-name conditions,
// bypass_actors, rules; bypass actors are compared as one whole list and
// rules are matched by type, in sorted type order.
func Compare(declared, observed Wire) []Diff {
	var diffs []Diff

	if declared.Target != observed.Target {
		diffs = append(diffs, Diff{"target", declared.Target, observed.Target})
	}
	if declared.Enforcement != observed.Enforcement {
		diffs = append(diffs, Diff{"enforcement", declared.Enforcement, observed.Enforcement})
	}
	diffs = append(diffs, compareConditions(declared.Conditions, observed.Conditions)...)
	diffs = append(diffs, compareBypassActors(declared.BypassActors, observed.BypassActors)...)
	diffs = append(diffs, compareRules(declared.Rules, observed.Rules)...)

	return diffs
}

func compareConditions(a, b *Conditions) []Diff {
	var aRef, bRef *RefPatterns
	if a != nil {
		aRef = a.RefName
	}
	if b != nil {
		bRef = b.RefName
	}
	if aRef == nil && bRef == nil {
		return nil
	}
	var diffs []Diff
	if aRef == nil || bRef == nil || !stringSliceEqual(aRef.Include, bRef.Include) {
		diffs = append(diffs, Diff{"conditions.ref_name.include", refOrNil(aRef, true), refOrNil(bRef, true)})
	}
	if aRef == nil || bRef == nil || !stringSliceEqual(aRef.Exclude, bRef.Exclude) {
		diffs = append(diffs, Diff{"conditions.ref_name.exclude", refOrNil(aRef, false), refOrNil(bRef, false)})
	}
	return diffs
}

func refOrNil(r *RefPatterns, include bool) interface{} {
	if r == nil {
		return nil
	}
	if include {
		return r.Include
	}
	return r.Exclude
}

func compareBypassActors(a, b []BypassActor) []Diff {
	if reflect.DeepEqual(a, b) {
		return nil
	}
	return []Diff{{"bypass_actors", a, b}}
}

func compareRules(a, b []Rule) []Diff {
	var diffs []Diff
	byType := func(rules []Rule) map[string]Rule {
		m := make(map[string]Rule, len(rules))
		for _, r := range rules {
			m[r.Type] = r
		}
		return m
	}
	am, bm := byType(a), byType(b)

	types := map[string]struct{}{}
	for t := range am {
		types[t] = struct{}{}
	}
	for t := range bm {
		types[t] = struct{}{}
	}
	sorted := make([]string, 0, len(types))
	for t := range types {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)

	for _, t := range sorted {
		ar, aok := am[t]
		br, bok := bm[t]
		switch {
		case aok && !bok:
			diffs = append(diffs, Diff{"rules." + t, ar.Parameters, nil})
		case !aok && bok:
			diffs = append(diffs, Diff{"rules." + t, nil, br.Parameters})
		case !reflect.DeepEqual(ar.Parameters, br.Parameters):
			diffs = append(diffs, Diff{"rules." + t, ar.Parameters, br.Parameters})
		}
	}
	return diffs
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	fieldStyle   = lipgloss.NewStyle().Bold(true)
)

// Render renders diffs as a human-readable text block. When termenv's
// color profile for standard output is not Ascii (or forceColor is true)
// the field names and +/- lines are styled via lipgloss; otherwise plain
// text is produced so the same renderer can feed an alert block or a
// check-run body. w is only written to; it does not affect colorization.
func Render(diffs []Diff, w io.Writer, forceColor bool) string {
	colorize := forceColor || termenv.ColorProfile() != termenv.Ascii

	var b strings.Builder
	for _, d := range diffs {
		field := fieldStyle.Render(d.Field)
		if !colorize {
			field = d.Field
		}
		fmt.Fprintf(&b, "%s:\n", field)
		writeSide(&b, "-", d.Observed, colorize, removedStyle)
		writeSide(&b, "+", d.Declared, colorize, addedStyle)
	}
	if w != nil {
		fmt.Fprint(w, b.String())
	}
	return b.String()
}

func writeSide(b *strings.Builder, prefix string, v interface{}, colorize bool, style lipgloss.Style) {
	line := fmt.Sprintf("%s %v", prefix, formatValue(v))
	if colorize {
		line = style.Render(line)
	}
	b.WriteString(line)
	b.WriteByte('\n')
}

func formatValue(v interface{}) string {
	if v == nil {
		return "<absent>"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
