package containerizer

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("").Option("missingkey=error").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.tmpl"),
)

// Common is embedded by every compose template's data.
type Common struct {
	// Network is the external network shared by the stack.
	Network string
	// Tunnel adds an ngrok sidecar when set.
	Tunnel *Tunnel
}

// Tunnel describes an ngrok sidecar exposing a host port on a public domain.
type Tunnel struct {
	Service string
	Image   string
	Token   string
	Domain  string
	// Target is the URL ngrok forwards to, usually on host.docker.internal.
	Target string
}

// URL is the public https address of the tunnel.
func (t *Tunnel) URL() string {
	return "https://" + t.Domain
}

// Render executes the named template. Compose templates (*.yml.tmpl) are
// checked to be well-formed YAML so that mistakes surface before compose
// sees them.
func Render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}

	if strings.HasSuffix(name, ".yml.tmpl") {
		var doc map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
			return nil, fmt.Errorf("template %s produced invalid YAML: %w", name, err)
		}
		if _, ok := doc["services"]; !ok {
			return nil, fmt.Errorf("template %s defines no services", name)
		}
	}
	return buf.Bytes(), nil
}
