package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jung-kurt/gofpdf"
	"github.com/releasedesk/backend/internal/config"
	"github.com/releasedesk/backend/internal/models"
	qrcode "github.com/skip2/go-qrcode"
)

// ReportService renders printable release summaries
type ReportService struct {
	cfg *config.Config
}

func NewReportService(cfg *config.Config) *ReportService { return &ReportService{cfg: cfg} }

// ReleaseURL is the dashboard page of a release
func (s *ReportService) ReleaseURL(id string) string {
	return fmt.Sprintf("%s/releases/%s", strings.TrimRight(s.cfg.FrontendURL, "/"), id)
}

// ReleaseSummaryPDF renders an A4 summary of a release with its tracks, credits
// and a QR code linking to the release page
func (s *ReportService) ReleaseSummaryPDF(release *ReleaseView, artists []models.RemoteArtist) ([]byte, error) {
	releaseURL := s.ReleaseURL(release.ID)

	png, err := qrcode.Encode(releaseURL, qrcode.Medium, 512)
	if err != nil {
		return nil, errors.Wrap(err, "encode qr code")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(release.Title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, tr(release.Title))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	lines := []string{
		fmt.Sprintf("Status: %s (%s)", release.Status, release.StatusDescription),
		fmt.Sprintf("Release date: %s", release.ReleaseDate),
		fmt.Sprintf("Label: %s", release.Label),
	}
	if release.Remark != "" {
		lines = append(lines, fmt.Sprintf("Remark: %s", release.Remark))
	}
	pdf.MultiCell(120, 6, tr(strings.Join(lines, "\n")), "", "L", false)

	// QR in the top right corner
	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("qr", opt, bytes.NewReader(png))
	pdf.ImageOptions("qr", 150, 15, 45, 45, false, opt, 0, "")

	pdf.SetY(65)
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 8, "Tracks")
	pdf.Ln(9)

	credits := map[string][]string{}
	for _, a := range artists {
		credits[a.TrackID] = append(credits[a.TrackID], fmt.Sprintf("%s (%s)", a.Name, a.Role))
	}

	for i, t := range release.Tracks {
		pdf.SetFont("Arial", "B", 11)
		title := fmt.Sprintf("%d. %s", i+1, t.Name)
		if t.Explicit {
			title += " [E]"
		}
		pdf.Cell(0, 6, tr(title))
		pdf.Ln(6)

		pdf.SetFont("Arial", "", 10)
		details := fmt.Sprintf("ISRC: %s   Language: %s   Genre: %s", orDash(t.ISRC), orDash(t.Language), orDash(t.Genre))
		pdf.Cell(0, 5, tr(details))
		pdf.Ln(5)
		if names := credits[t.ID]; len(names) > 0 {
			pdf.MultiCell(0, 5, tr("Credits: "+strings.Join(names, ", ")), "", "L", false)
		}
		pdf.Ln(2)
	}

	pdf.SetAutoPageBreak(false, 0)
	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(0, 5, fmt.Sprintf("%s  generated %s", releaseURL, time.Now().UTC().Format("2006-01-02 15:04 MST")))

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return out.Bytes(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
