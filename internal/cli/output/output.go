// Package output renders envelope payloads for the terminal.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format selects how command results are printed
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json or yaml; empty means text
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid output format '%s', must be one of: text, json, yaml", s)
}

// Decode parses raw JSON keeping numbers exact, so large record ids survive
func Decode(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode response data: %w", err)
	}
	return v, nil
}

// Raw renders a JSON payload in the given format
func Raw(w io.Writer, format Format, raw json.RawMessage) error {
	v, err := Decode(raw)
	if err != nil {
		return err
	}
	return Value(w, format, v)
}

// Value renders a decoded value in the given format
func Value(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlValue(v)); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return text(w, v)
	}
}

// yamlValue swaps json.Number for plain scalar nodes, which yaml.v3 would
// otherwise quote as strings. The digits are kept as sent.
func yamlValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(val.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: val.String()}
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = yamlValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = yamlValue(item)
		}
		return out
	default:
		return v
	}
}

func text(w io.Writer, v any) error {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		// paged results carry their rows under "records"
		if rows, ok := val["records"].([]any); ok {
			if err := table(w, rows); err != nil {
				return err
			}
			if total, ok := val["total"]; ok {
				fmt.Fprintf(w, "\nTotal: %s", scalar(total))
				if current, ok := val["current"]; ok {
					fmt.Fprintf(w, "  Page: %s", scalar(current))
					if pages, ok := val["pages"]; ok {
						fmt.Fprintf(w, "/%s", scalar(pages))
					}
				}
				fmt.Fprintln(w)
			}
			return nil
		}
		return fields(w, val)
	case []any:
		return table(w, val)
	default:
		_, err := fmt.Fprintln(w, scalar(val))
		return err
	}
}

func fields(w io.Writer, m map[string]any) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, key := range sortedKeys(m) {
		fmt.Fprintf(tw, "%s:\t%s\n", key, scalar(m[key]))
	}
	return tw.Flush()
}

func table(w io.Writer, rows []any) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No records found.")
		return err
	}

	columns := map[string]bool{}
	for _, row := range rows {
		if m, ok := row.(map[string]any); ok {
			for k := range m {
				columns[k] = true
			}
		}
	}
	if len(columns) == 0 {
		for _, row := range rows {
			fmt.Fprintln(w, scalar(row))
		}
		return nil
	}

	header := sortedKeys(columns)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	upper := make([]string, len(header))
	rule := make([]string, len(header))
	for i, h := range header {
		upper[i] = strings.ToUpper(h)
		rule[i] = strings.Repeat("─", len(h))
	}
	fmt.Fprintln(tw, strings.Join(upper, "\t"))
	fmt.Fprintln(tw, strings.Join(rule, "\t"))

	for _, row := range rows {
		m, _ := row.(map[string]any)
		cells := make([]string, len(header))
		for i, h := range header {
			cells[i] = scalar(m[h])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// scalar flattens a value onto one line; nested values print as compact JSON
func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return strings.ReplaceAll(val, "\n", " ")
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
