// Package artwork defines the artwork record model served by the Art
// Institute of Chicago API and the normalizer that turns raw API items
// into fully populated display records.
package artwork

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Sentinels substituted for missing or falsy source fields.
const (
	UnknownTitle  = "Unknown Title"
	UnknownPlace  = "Unknown Place"
	UnknownArtist = "Unknown Artist"
	NoInscription = "None"
	UnknownDate   = "Unknown"
)

// Fields lists the API fields a Record is built from.
// Passed to the API as the "fields" query parameter.
var Fields = []string{
	"id",
	"title",
	"place_of_origin",
	"artist_display",
	"inscriptions",
	"date_start",
	"date_end",
}

// Text is a loosely typed API scalar. The artworks API returns most
// fields as strings but the dates as integers, and any of them may be null.
type Text struct {
	// Value is the textual form of the scalar.
	Value string

	// Truthy mirrors JSON truthiness: false for null, "", 0 and false.
	Truthy bool
}

// NewText returns a truthy Text for a non-empty string.
func NewText(s string) Text {
	return Text{Value: s, Truthy: s != ""}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Text{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode text: %w", err)
		}
		*t = NewText(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("decode bool: %w", err)
		}
		*t = Text{Value: strconv.FormatBool(b), Truthy: b}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode number: %w", err)
		}
		f, err := n.Float64()
		if err != nil {
			return fmt.Errorf("decode number: %w", err)
		}
		*t = Text{Value: n.String(), Truthy: f != 0}
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Falsy values encode as null.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Truthy {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// Or returns the value when truthy and fallback otherwise.
func (t Text) Or(fallback string) string {
	if t.Truthy {
		return t.Value
	}
	return fallback
}

// RawRecord is one item of the API's "data" array.
type RawRecord struct {
	ID            int  `json:"id"`
	Title         Text `json:"title"`
	PlaceOfOrigin Text `json:"place_of_origin"`
	ArtistDisplay Text `json:"artist_display"`
	Inscriptions  Text `json:"inscriptions"`
	DateStart     Text `json:"date_start"`
	DateEnd       Text `json:"date_end"`
}

// Record is a display-ready artwork. Every field is populated.
type Record struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	PlaceOfOrigin string `json:"place_of_origin"`
	ArtistDisplay string `json:"artist_display"`
	Inscriptions  string `json:"inscriptions"`
	DateStart     string `json:"date_start"`
	DateEnd       string `json:"date_end"`
}

// Normalize maps a raw API item to a Record, substituting the per-field
// sentinel for every falsy source value.
func Normalize(raw RawRecord) Record {
	return Record{
		ID:            raw.ID,
		Title:         raw.Title.Or(UnknownTitle),
		PlaceOfOrigin: raw.PlaceOfOrigin.Or(UnknownPlace),
		ArtistDisplay: raw.ArtistDisplay.Or(UnknownArtist),
		Inscriptions:  raw.Inscriptions.Or(NoInscription),
		DateStart:     raw.DateStart.Or(UnknownDate),
		DateEnd:       raw.DateEnd.Or(UnknownDate),
	}
}

// NormalizeAll normalizes a page of raw items, preserving order.
func NormalizeAll(raws []RawRecord) []Record {
	records := make([]Record, 0, len(raws))
	for _, raw := range raws {
		records = append(records, Normalize(raw))
	}
	return records
}

// IDs returns the record ids in order.
func IDs(records []Record) []int {
	ids := make([]int, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
