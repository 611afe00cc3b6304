package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"rightskeeper/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// ParseFormat accepts "pdf" or "html" in any case. Empty means PDF.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatPDF):
		return FormatPDF, nil
	case string(FormatHTML):
		return FormatHTML, nil
	default:
		return "", &domain.ValidationError{Field: "format", Message: fmt.Sprintf("unsupported export format %q", s)}
	}
}

const (
	dateTimeLayout  = "January 2, 2006 at 3:04:05 PM MST"
	recordingLayout = "Jan 2, 2006 at 3:04 PM"
)

// RecordingLine is one attached recording in the evidence section.
type RecordingLine struct {
	Name     string
	Recorded string
	Duration string
}

// Document is the printable projection of an incident.
type Document struct {
	Title       string
	DateTime    string
	Location    string
	Agency      string
	Officer     string
	Notes       string
	Recordings  []RecordingLine
	GeneratedAt string
}

// FromIncident builds the report document for an incident and its recordings.
func FromIncident(incident domain.Incident, recordings []domain.Recording, generatedAt time.Time) Document {
	doc := Document{
		Title:       incident.Title,
		DateTime:    incident.Date.Format(dateTimeLayout),
		Location:    incident.Location,
		Agency:      incident.Agency,
		Officer:     incident.OfficerInfo,
		Notes:       incident.Notes,
		Recordings:  make([]RecordingLine, 0, len(recordings)),
		GeneratedAt: generatedAt.Format(dateTimeLayout),
	}
	for _, rec := range recordings {
		doc.Recordings = append(doc.Recordings, RecordingLine{
			Name:     rec.DisplayName(),
			Recorded: rec.CreatedAt.Format(recordingLayout),
			Duration: FormatDuration(rec.Duration),
		})
	}
	return doc
}

// AgencyOfficer joins agency and officer the way the report prints them.
func (d Document) AgencyOfficer() string {
	agency := strings.TrimSpace(d.Agency)
	officer := strings.TrimSpace(d.Officer)
	switch {
	case agency != "" && officer != "":
		return agency + " - " + officer
	case agency != "":
		return agency
	default:
		return officer
	}
}

// EvidenceSummary is the headline of the evidence section.
func (d Document) EvidenceSummary() string {
	return "Attached Recordings: " + strconv.Itoa(len(d.Recordings))
}

// FormatDuration renders a duration as m:ss or h:mm:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FileName is the suggested name of an exported report. The incident ID
// keeps reports of incidents that share a date apart.
func FileName(incident domain.Incident, format Format) string {
	name := "Incident_Report_" + strconv.FormatInt(incident.Date.Unix(), 10)
	if id := fileSafe(incident.ID); id != "" {
		name += "_" + id
	}
	return name + "." + string(format)
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return -1
		}
	}, s)
}

// Render writes doc to w in the requested format.
func Render(w io.Writer, doc Document, format Format) error {
	switch format {
	case FormatPDF:
		return renderPDF(w, doc, true)
	case FormatHTML:
		return renderHTML(w, doc)
	default:
		return &domain.ValidationError{Field: "format", Message: fmt.Sprintf("unsupported export format %q", format)}
	}
}
