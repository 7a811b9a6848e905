// Package output serializes a ResultMap for the command line.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sternrassler/tmio-cotd-client/pkg/cotd"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatCSV, FormatYAML}

// ParseFormat validates a format name. The empty string means json.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json, csv or yaml)", s)
	}
}

// Document is the json and yaml shape of a run.
type Document struct {
	Players []Player `json:"players" yaml:"players"`
}

// Player is one player's history.
type Player struct {
	Name   string  `json:"name" yaml:"name"`
	Points []Point `json:"points" yaml:"points"`
}

// Point is one COTD placement.
type Point struct {
	Date string `json:"date" yaml:"date"`
	Rank int    `json:"rank" yaml:"rank"`
}

// NewDocument orders results by the first occurrence of each name.
// Names without a result are skipped.
func NewDocument(names []string, results cotd.ResultMap) Document {
	doc := Document{Players: []Player{}}
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		series, ok := results[name]
		if !ok {
			continue
		}

		points := make([]Point, len(series))
		for i, entry := range series {
			points[i] = Point{Date: entry.Date.Format(cotd.DateLayout), Rank: entry.Rank}
		}
		doc.Players = append(doc.Players, Player{Name: name, Points: points})
	}

	return doc
}

// Write encodes results to w in the given format.
func Write(w io.Writer, format Format, names []string, results cotd.ResultMap) error {
	doc := NewDocument(names, results)

	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()

	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"player", "date", "rank"}); err != nil {
			return fmt.Errorf("encode csv: %w", err)
		}
		for _, p := range doc.Players {
			for _, point := range p.Points {
				if err := cw.Write([]string{p.Name, point.Date, strconv.Itoa(point.Rank)}); err != nil {
					return fmt.Errorf("encode csv: %w", err)
				}
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("encode csv: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
