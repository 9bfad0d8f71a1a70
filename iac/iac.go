// Package iac renders a marketplace image reference as Infrastructure as
// Code snippets.
//
// The output of every format is byte stable: users paste it directly into
// templates, so whitespace and key order never change.
package iac

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonwraymond/vmcatalog/apierr"
)

// ImageReference identifies one VM image version.
type ImageReference struct {
	Publisher string `json:"publisher"`
	Offer     string `json:"offer"`
	SKU       string `json:"sku"`
	Version   string `json:"version"`
}

// Validate reports a missing field.
func (r ImageReference) Validate() error {
	switch {
	case r.Publisher == "":
		return apierr.NewValidation("publisher is required")
	case r.Offer == "":
		return apierr.NewValidation("offer is required")
	case r.SKU == "":
		return apierr.NewValidation("sku is required")
	case r.Version == "":
		return apierr.NewValidation("version is required")
	}
	return nil
}

// Format is an IaC output format.
type Format int

const (
	FormatARM Format = iota + 1
	FormatTerraform
	FormatBicep
	FormatAnsible
)

// Formats lists every format in display order.
var Formats = []Format{FormatARM, FormatTerraform, FormatBicep, FormatAnsible}

// String returns the format's name.
func (f Format) String() string {
	switch f {
	case FormatARM:
		return "arm"
	case FormatTerraform:
		return "terraform"
	case FormatBicep:
		return "bicep"
	case FormatAnsible:
		return "ansible"
	default:
		return "unknown"
	}
}

// Title returns the format's display name.
func (f Format) Title() string {
	switch f {
	case FormatARM:
		return "ARM Template"
	case FormatTerraform:
		return "Terraform"
	case FormatBicep:
		return "Bicep"
	case FormatAnsible:
		return "Ansible"
	default:
		return "Unknown"
	}
}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, apierr.NewValidation(fmt.Sprintf("unknown format %q", s))
}

// Render renders ref in format.
func Render(ref ImageReference, format Format) (string, error) {
	switch format {
	case FormatARM:
		return renderARM(ref)
	case FormatTerraform:
		return renderTerraform(ref), nil
	case FormatBicep:
		return renderBicep(ref), nil
	case FormatAnsible:
		return renderAnsible(ref), nil
	default:
		return "", apierr.NewValidation(fmt.Sprintf("unsupported format %d", int(format)))
	}
}

// Snippet is one rendered format.
type Snippet struct {
	Format Format
	Text   string
}

// RenderAll renders ref in every format, in Formats order.
func RenderAll(ref ImageReference) ([]Snippet, error) {
	out := make([]Snippet, 0, len(Formats))
	for _, f := range Formats {
		text, err := Render(ref, f)
		if err != nil {
			return nil, err
		}
		out = append(out, Snippet{Format: f, Text: text})
	}
	return out, nil
}

func renderARM(ref ImageReference) (string, error) {
	doc := struct {
		ImageReference ImageReference `json:"imageReference"`
	}{ref}

	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", apierr.Wrap(apierr.KindValidation, err, "")
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// hclEscaper turns template sequences into literals.
var hclEscaper = strings.NewReplacer("${", "$${", "%{", "%%{")

func hclString(s string) string {
	return hclEscaper.Replace(strconv.Quote(s))
}

func renderTerraform(ref ImageReference) string {
	var b strings.Builder
	b.WriteString("source_image_reference {\n")
	fmt.Fprintf(&b, "  publisher = %s\n", hclString(ref.Publisher))
	fmt.Fprintf(&b, "  offer     = %s\n", hclString(ref.Offer))
	fmt.Fprintf(&b, "  sku       = %s\n", hclString(ref.SKU))
	fmt.Fprintf(&b, "  version   = %s\n", hclString(ref.Version))
	b.WriteString("}")
	return b.String()
}

var bicepEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "${", `\${`)

func bicepString(s string) string {
	return "'" + bicepEscaper.Replace(s) + "'"
}

func renderBicep(ref ImageReference) string {
	var b strings.Builder
	b.WriteString("imageReference: {\n")
	fmt.Fprintf(&b, "  publisher: %s\n", bicepString(ref.Publisher))
	fmt.Fprintf(&b, "  offer: %s\n", bicepString(ref.Offer))
	fmt.Fprintf(&b, "  sku: %s\n", bicepString(ref.SKU))
	fmt.Fprintf(&b, "  version: %s\n", bicepString(ref.Version))
	b.WriteString("}")
	return b.String()
}

func renderAnsible(ref ImageReference) string {
	var b strings.Builder
	b.WriteString("image:\n")
	fmt.Fprintf(&b, "  publisher: %s\n", strconv.Quote(ref.Publisher))
	fmt.Fprintf(&b, "  offer: %s\n", strconv.Quote(ref.Offer))
	fmt.Fprintf(&b, "  sku: %s\n", strconv.Quote(ref.SKU))
	fmt.Fprintf(&b, "  version: %s", strconv.Quote(ref.Version))
	return b.String()
}
