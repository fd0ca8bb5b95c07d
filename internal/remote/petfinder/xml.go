package petfinder

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

type document struct {
	XMLName xml.Name `xml:"petfinder"`
	Header  struct {
		Status struct {
			Code    string `xml:"code"`
			Message string `xml:"message"`
		} `xml:"status"`
	} `xml:"header"`
	Pets struct {
		Pet []pet `xml:"pet"`
	} `xml:"pets"`
}

type pet struct {
	ID          string   `xml:"id"`
	Name        string   `xml:"name"`
	Animal      string   `xml:"animal"`
	Breeds      []breeds `xml:"breeds"`
	Mix         string   `xml:"mix"`
	Age         string   `xml:"age"`
	Sex         string   `xml:"sex"`
	Size        string   `xml:"size"`
	Options     []string `xml:"options>option"`
	Description string   `xml:"description"`
	LastUpdate  string   `xml:"lastUpdate"`
	Status      string   `xml:"status"`
	Photos      []photo  `xml:"media>photos>photo"`
}

type breeds struct {
	Breed []string `xml:"breed"`
}

type photo struct {
	ID   string `xml:"id,attr"`
	Size string `xml:"size,attr"`
	URL  string `xml:",chardata"`
}

func decode(body []byte) (document, error) {
	var doc document
	if len(bytes.TrimSpace(body)) == 0 {
		return doc, fmt.Errorf("empty response body")
	}
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	// Listings are declared iso-8859-1.
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode listing: %w", err)
	}
	return doc, nil
}

func (p pet) toRemote() (mirror.RemoteRecord, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(p.ID), 10, 64)
	if err != nil {
		return mirror.RemoteRecord{}, fmt.Errorf("parse id %q: %w", p.ID, err)
	}
	rec := mirror.RemoteRecord{
		ExternalID:  id,
		Species:     p.Animal,
		Mix:         p.Mix,
		Age:         p.Age,
		Name:        p.Name,
		Size:        p.Size,
		Sex:         p.Sex,
		Description: strings.TrimSpace(p.Description),
		LastUpdate:  parseTime(p.LastUpdate),
		Status:      p.Status,
		Options:     p.Options,
	}
	for _, b := range p.Breeds {
		rec.Breeds = append(rec.Breeds, b.Breed)
	}
	for _, ph := range p.Photos {
		if u := strings.TrimSpace(ph.URL); u != "" {
			rec.PhotoURLs = append(rec.PhotoURLs, u)
		}
	}
	return rec, nil
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
