/*
   xgdctl - Xbox security sector tools
   Copyright (c) 2024, the xgdctl authors

   This file is part of xgdctl.

   xgdctl is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   xgdctl is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with xgdctl. If not, see <http://www.gnu.org/licenses/>.
*/

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
)

// Format is an output format for reports.
type Format int

const (
	Text Format = iota
	YAML
	JSON
)

//
func (f Format) String() string {

	switch f {

	case YAML:
		return "yaml"

	case JSON:
		return "json"

	default:
		return "text"
	}
}

//
func GetFormat(f string) (Format, error) {

	switch strings.ToLower(f) {

	case "", "text", "txt":
		return Text, nil

	case "yaml", "yml":
		return YAML, nil

	case "json":
		return JSON, nil

	default:
		return Text, fmt.Errorf("unknown output format: %s", f)
	}
}

// Render writes r to w in format f. Detail facts and tables are only
// included when verbose is set.
func (r *Report) Render(w io.Writer, f Format, verbose bool) error {

	switch f {

	case YAML:
		return r.writeYAML(w, verbose)

	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.view(verbose))

	default:
		return r.writeText(w, verbose)
	}
}

//
func (r *Report) writeText(w io.Writer, verbose bool) error {

	if r.Source != "" {
		if _, err := fmt.Fprintln(w, r.Source); err != nil {
			return err
		}
	}

	for _, it := range r.items {

		switch {

		case it.fact != nil:
			if it.fact.Detail && !verbose {
				continue
			}
			fmt.Fprintf(w, "%s: %s\n", it.fact.Key, it.fact.Value)

		case it.diag != nil:
			fmt.Fprintln(w, it.diag.String())

		case it.table != nil:
			if it.table.Detail && !verbose {
				continue
			}
			if err := writeTable(w, it.table); err != nil {
				return err
			}
		}
	}

	return nil
}

//
func writeTable(w io.Writer, t *Table) error {
	if t.Title != "" {
		fmt.Fprintf(w, "%s:\n", t.Title)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(t.Header) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Header, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// view is the structured form used for JSON output
type view struct {
	Source      string           `json:"source,omitempty"`
	Kind        string           `json:"kind,omitempty"`
	Facts       []Fact           `json:"facts,omitempty"`
	Tables      []Table          `json:"tables,omitempty"`
	Diagnostics base.Diagnostics `json:"diagnostics,omitempty"`
}

//
func (r *Report) view(verbose bool) *view {
	v := &view{Source: r.Source, Kind: r.Kind, Diagnostics: r.Diagnostics()}
	for _, f := range r.Facts() {
		if verbose || !f.Detail {
			v.Facts = append(v.Facts, f)
		}
	}
	for _, t := range r.Tables() {
		if verbose || !t.Detail {
			v.Tables = append(v.Tables, t)
		}
	}
	return v
}

// MarshalJSON renders the verbose view.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.view(true))
}

// YAML output keeps the fact order by building the document node by node.
func (r *Report) writeYAML(w io.Writer, verbose bool) error {

	doc := mapNode()
	if r.Source != "" {
		addPair(doc, "source", scalar(r.Source))
	}
	if r.Kind != "" {
		addPair(doc, "kind", scalar(r.Kind))
	}

	facts := mapNode()
	seen := map[string]int{}
	for _, f := range r.Facts() {
		if f.Detail && !verbose {
			continue
		}
		key := f.Key
		if n := seen[f.Key]; n > 0 {
			key = fmt.Sprintf("%s (%d)", f.Key, n+1)
		}
		seen[f.Key]++
		addPair(facts, key, scalar(f.Value))
	}
	if len(facts.Content) > 0 {
		addPair(doc, "facts", facts)
	}

	tables := &yaml.Node{Kind: yaml.SequenceNode}
	for _, t := range r.Tables() {
		if t.Detail && !verbose {
			continue
		}
		tn := mapNode()
		addPair(tn, "title", scalar(t.Title))
		addPair(tn, "header", stringSeq(t.Header))
		rows := &yaml.Node{Kind: yaml.SequenceNode}
		for _, row := range t.Rows {
			rn := stringSeq(row)
			rn.Style = yaml.FlowStyle
			rows.Content = append(rows.Content, rn)
		}
		addPair(tn, "rows", rows)
		tables.Content = append(tables.Content, tn)
	}
	if len(tables.Content) > 0 {
		addPair(doc, "tables", tables)
	}

	diags := &yaml.Node{Kind: yaml.SequenceNode}
	for _, d := range r.Diagnostics() {
		dn := mapNode()
		addPair(dn, "severity", scalar(d.Severity.String()))
		if d.Code != "" {
			addPair(dn, "code", scalar(string(d.Code)))
		}
		addPair(dn, "message", scalar(d.Message))
		diags.Content = append(diags.Content, dn)
	}
	if len(diags.Content) > 0 {
		addPair(doc, "diagnostics", diags)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{
		Kind: yaml.DocumentNode, Content: []*yaml.Node{doc}}); err != nil {
		return err
	}
	return enc.Close()
}

//
func mapNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

//
func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

//
func stringSeq(vals []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode}
	for _, v := range vals {
		n.Content = append(n.Content, scalar(v))
	}
	return n
}

//
func addPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalar(key), value)
}
