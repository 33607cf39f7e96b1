// Package methods is the catalog of explanation methods the remote service can compute
// and the rendering mode each one requires.
package methods

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/JaimeStill/dermis/internal/locale"
)

// ID identifies an explanation method.
type ID string

// Known explanation methods.
const (
	GradCAM             ID = "gradcam"
	LIME                ID = "lime"
	SHAP                ID = "shap"
	Anchor              ID = "anchor"
	IntegratedGradients ID = "integrated-gradients"
)

// Mode selects how an explanation's images are presented.
type Mode string

const (
	// ModeToggle shows one image at a time and switches between overlay and heatmap.
	ModeToggle Mode = "toggle"
	// ModeBlend stacks the heatmap over the overlay at an adjustable opacity.
	ModeBlend Mode = "blend"
)

// Blend opacity bounds, in percent.
const (
	MinOpacity     = 10
	MaxOpacity     = 100
	DefaultOpacity = 50
)

// Method describes one catalog entry.
type Method struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Mode Mode   `json:"mode"`

	// WireID is the identifier the remote service expects in explanation requests.
	WireID string `json:"-"`

	descKey   string
	longKey   string
	toggleKey string
}

// Anchor returns the stable navigation target for the method within a detail view.
func (m Method) Anchor() string {
	return "method-" + string(m.ID)
}

var catalog = []Method{
	{
		ID: GradCAM, Name: "Grad-CAM", Mode: ModeToggle, WireID: "gradcam",
		descKey: "xai_methods.gradcam_desc", longKey: "xai_methods.gradcam_desc_long",
	},
	{
		ID: LIME, Name: "LIME", Mode: ModeToggle, WireID: "lime",
		descKey: "xai_methods.lime_desc", longKey: "xai_methods.lime_desc_long",
	},
	{
		ID: SHAP, Name: "SHAP", Mode: ModeBlend, WireID: "shap",
		descKey: "xai_methods.shap_desc", longKey: "xai_methods.shap_desc_long",
	},
	{
		ID: Anchor, Name: "Anchor", Mode: ModeToggle, WireID: "anchor",
		descKey: "xai_methods.anchor_desc", longKey: "xai_methods.anchor_desc_long",
		toggleKey: "xai_methods.anchor_desc_long_toggle",
	},
	{
		ID: IntegratedGradients, Name: "Integrated Gradients", Mode: ModeToggle, WireID: "ig",
		descKey: "xai_methods.ig_desc", longKey: "xai_methods.ig_desc_long",
	},
}

var aliases = map[string]ID{
	"ig":                   IntegratedGradients,
	"integrated gradients": IntegratedGradients,
	"integrated_gradients": IntegratedGradients,
	"integratedgradients":  IntegratedGradients,
	"grad-cam":             GradCAM,
	"grad_cam":             GradCAM,
}

// Catalog returns every method in presentation order.
func Catalog() []Method {
	return slices.Clone(catalog)
}

// IDs returns the identifiers of every method in presentation order.
func IDs() []ID {
	ids := make([]ID, len(catalog))
	for i, m := range catalog {
		ids[i] = m.ID
	}
	return ids
}

// Lookup returns the catalog entry for id.
func Lookup(id ID) (Method, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Method{}, false
}

// Parse normalizes s to a known method ID. Matching is case-insensitive and
// accepts the alternate spellings the remote service uses.
func Parse(s string) (ID, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if id, ok := aliases[key]; ok {
		return id, nil
	}
	id := ID(key)
	if _, ok := Lookup(id); !ok {
		return "", ErrUnknownMethod
	}
	return id, nil
}

// ModeOf returns the rendering mode for id.
func ModeOf(id ID) (Mode, error) {
	m, ok := Lookup(id)
	if !ok {
		return "", ErrUnknownMethod
	}
	return m.Mode, nil
}

// UnmarshalJSON accepts any spelling Parse accepts.
func (id *ID) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// Description is a method entry with its text resolved for one language.
type Description struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Mode        Mode   `json:"mode"`
	Anchor      string `json:"anchor"`
	Short       string `json:"short"`
	Long        string `json:"long"`
	ToggleLabel string `json:"toggle_label,omitempty"`
}

// Describe resolves the display text of m through l.
// Toggle-mode methods without a dedicated label use the generic heatmap label.
func Describe(m Method, l locale.Localizer) Description {
	d := Description{
		ID:     m.ID,
		Name:   m.Name,
		Mode:   m.Mode,
		Anchor: m.Anchor(),
		Short:  l.T(m.descKey),
		Long:   l.T(m.longKey),
	}

	switch {
	case m.toggleKey != "":
		d.ToggleLabel = l.T(m.toggleKey)
	case m.Mode == ModeToggle:
		d.ToggleLabel = l.T("xai_methods.show_heatmap")
	}

	return d
}

// DescribeAll resolves the full catalog through l.
func DescribeAll(l locale.Localizer) []Description {
	out := make([]Description, len(catalog))
	for i, m := range catalog {
		out[i] = Describe(m, l)
	}
	return out
}
