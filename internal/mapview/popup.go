package mapview

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"unicode/utf8"
)

// maxAddressLen bounds the address shown in photo popups
const maxAddressLen = 100

var popupTemplates = template.Must(template.New("popups").Parse(`
{{define "home"}}<div class="gm-popup gm-home-popup">
  <h4>Your Location</h4>
  <p><strong>{{.}}</strong></p>
</div>{{end}}

{{define "place"}}<div class="gm-popup">
  <h4>{{.Title}}</h4>
  <p><strong>Coordinates:</strong> {{printf "%.4f" .Lat}}, {{printf "%.4f" .Lon}}</p>
  {{- if .Distance}}
  <p><strong>Distance:</strong> {{printf "%.2f" .Distance.Km}} km</p>
  <p><strong>Est. Drive:</strong> {{.Distance.DriveMinutes}} min</p>
  {{- end}}
</div>{{end}}

{{define "photo"}}<div class="gm-popup gm-photo-popup">
  {{- if .Preview}}
  <div class="gm-preview"><img src="{{.PreviewURL}}" alt="{{.Filename}}"></div>
  {{- end}}
  <h4>{{.Filename}}</h4>
  <div class="gm-section">
    <p><strong>Coordinates:</strong> {{printf "%.6f" .Lat}}, {{printf "%.6f" .Lon}}</p>
    {{- if .Address}}
    <p><strong>Location:</strong> {{.ShortAddress}}</p>
    {{- end}}
    {{- if .Distance}}
    <p><strong>Distance from you:</strong> {{printf "%.2f" .Distance.Km}} km</p>
    <p><strong>Est. Drive:</strong> {{.Distance.DriveMinutes}} min</p>
    {{- end}}
  </div>
  {{- if .HasCameraInfo}}
  <div class="gm-section">
    <h5>Camera Info</h5>
    {{- if .Camera}}<p><strong>Camera:</strong> {{.Camera}}</p>{{end}}
    {{- if .CaptureTime}}<p><strong>Date:</strong> {{.CaptureTime}}</p>{{end}}
    {{- if .Dimensions}}<p><strong>Resolution:</strong> {{.Dimensions}}</p>{{end}}
    {{- if .Altitude}}<p><strong>Altitude:</strong> {{.Altitude}}</p>{{end}}
  </div>
  {{- end}}
</div>{{end}}

{{define "thumb"}}<div class="gm-thumb"><img src="{{.}}" alt=""><span class="gm-thumb-badge"><i class="fa fa-camera"></i></span></div>{{end}}
`))

// Distance from the user to a marker
type Distance struct {
	Km           float64
	DriveMinutes int
}

// NewDistance rounds the drive estimate down to whole minutes
func NewDistance(km, driveMinutes float64) *Distance {
	return &Distance{Km: km, DriveMinutes: int(math.Floor(driveMinutes))}
}

// Place describes a plain location marker
type Place struct {
	Title    string
	Lat      float64
	Lon      float64
	Distance *Distance
}

// Photo describes a marker for a geotagged image. Empty text fields are
// left out of the popup.
type Photo struct {
	Filename    string
	Lat         float64
	Lon         float64
	Preview     string
	Address     string
	Distance    *Distance
	Camera      string
	CaptureTime string
	Dimensions  string
	Altitude    string
}

// PreviewURL is the preview as a data URL
func (p Photo) PreviewURL() template.URL {
	return template.URL("data:image/jpeg;base64," + p.Preview)
}

// ShortAddress truncates long addresses
func (p Photo) ShortAddress() string {
	if utf8.RuneCountInString(p.Address) <= maxAddressLen {
		return p.Address
	}
	return string([]rune(p.Address)[:maxAddressLen]) + "..."
}

// HasCameraInfo reports whether any camera field is known
func (p Photo) HasCameraInfo() bool {
	return p.Camera != "" || p.CaptureTime != "" || p.Dimensions != "" || p.Altitude != ""
}

func renderPopup(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := popupTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s popup: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
