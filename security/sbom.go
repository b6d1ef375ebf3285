// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package security

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CycloneDX/cyclonedx-go"
	"github.com/package-url/packageurl-go"
	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

type SBOMOptions struct {
	// Tool is "syft" or "cdxgen".
	Tool   string
	Path   string
	Output string
	// Format is "json" or "xml". cdxgen only writes json.
	Format string
}

// GenerateSBOM creates a CycloneDX SBOM for a directory and returns the path of the written file.
func GenerateSBOM(ctx context.Context, opts SBOMOptions) (string, error) {
	path := utils.OrDefault(utils.EmptyThenNil(opts.Path), ".")
	format := utils.OrDefault(utils.EmptyThenNil(opts.Format), "json")
	if format != "json" && format != "xml" {
		return "", errors.Errorf("unsupported sbom format %s", format)
	}
	output := utils.OrDefault(utils.EmptyThenNil(opts.Output), "sbom."+format)

	var name string
	var args []string
	switch utils.OrDefault(utils.EmptyThenNil(opts.Tool), "syft") {
	case "syft":
		name = "syft"
		args = []string{"scan", "dir:" + path, "-o", "cyclonedx-" + format + "=" + output}
	case "cdxgen":
		if format != "json" {
			return "", errors.New("cdxgen only supports json output")
		}
		name = "cdxgen"
		args = []string{"-o", output, "--spec-version", "1.5", path}
	default:
		return "", errors.Errorf("unsupported sbom tool %s", opts.Tool)
	}

	slog.Info("generating sbom", "tool", name, "path", path, "output", output)
	if _, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: name, Args: args, ThrowOnError: true}); err != nil {
		return "", errors.Wrapf(err, "could not generate sbom with %s", name)
	}
	return output, nil
}

func formatFromPath(path string) cyclonedx.BOMFileFormat {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return cyclonedx.BOMFileFormatXML
	}
	return cyclonedx.BOMFileFormatJSON
}

// ReadSBOM decodes a CycloneDX file, xml files are detected by their extension.
func ReadSBOM(path string) (*cyclonedx.BOM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open sbom")
	}
	defer f.Close()

	var bom cyclonedx.BOM
	if err := cyclonedx.NewBOMDecoder(f, formatFromPath(path)).Decode(&bom); err != nil {
		return nil, errors.Wrapf(err, "could not decode sbom %s", path)
	}
	return &bom, nil
}

func WriteSBOM(w io.Writer, bom *cyclonedx.BOM, format cyclonedx.BOMFileFormat) error {
	encoder := cyclonedx.NewBOMEncoder(w, format)
	encoder.SetPretty(true)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(bom)
}

type SBOMSummary struct {
	SpecVersion string         `json:"specVersion"`
	Components  int            `json:"components"`
	Ecosystems  map[string]int `json:"ecosystems"`
	Licenses    int            `json:"licenses"`
}

// SummarizeSBOM counts components per purl type. Components without a valid purl count as "unknown".
func SummarizeSBOM(bom *cyclonedx.BOM) SBOMSummary {
	summary := SBOMSummary{
		SpecVersion: bom.SpecVersion.String(),
		Ecosystems:  map[string]int{},
	}
	if bom.Components == nil {
		return summary
	}

	licenses := map[string]struct{}{}
	for _, c := range *bom.Components {
		summary.Components++
		ecosystem := "unknown"
		if c.PackageURL != "" {
			if purl, err := packageurl.FromString(c.PackageURL); err == nil {
				ecosystem = purl.Type
			}
		}
		summary.Ecosystems[ecosystem]++

		if c.Licenses == nil {
			continue
		}
		for _, l := range *c.Licenses {
			switch {
			case l.Expression != "":
				licenses[l.Expression] = struct{}{}
			case l.License != nil && l.License.ID != "":
				licenses[l.License.ID] = struct{}{}
			case l.License != nil && l.License.Name != "":
				licenses[l.License.Name] = struct{}{}
			}
		}
	}
	summary.Licenses = len(licenses)
	return summary
}

type MergeSBOMsConfigFile struct {
	Purl  string   `json:"purl"`
	SBOMs []string `json:"sboms"`
}

// MergeSBOMs creates one BOM whose root component depends on the root component of every input.
// Inputs without a metadata component are skipped.
func MergeSBOMs(purl string, boms []*cyclonedx.BOM) *cyclonedx.BOM {
	result := cyclonedx.NewBOM()
	result.Metadata = &cyclonedx.Metadata{
		Component: &cyclonedx.Component{
			Type:       cyclonedx.ComponentTypeApplication,
			BOMRef:     purl,
			PackageURL: purl,
			Name:       purl,
		},
	}
	result.Components = &[]cyclonedx.Component{}
	result.Dependencies = &[]cyclonedx.Dependency{}

	rootDependencies := cyclonedx.Dependency{
		Ref:          purl,
		Dependencies: &[]string{},
	}
	for i, bom := range boms {
		if bom.Metadata == nil || bom.Metadata.Component == nil {
			slog.Warn("SBOM has no metadata or component, skipping", "index", i)
			continue
		}

		*result.Components = append(*result.Components, *bom.Metadata.Component)
		if bom.Components != nil {
			*result.Components = append(*result.Components, *bom.Components...)
		}
		if bom.Metadata.Component.BOMRef != "" {
			*rootDependencies.Dependencies = append(*rootDependencies.Dependencies, bom.Metadata.Component.BOMRef)
		}
		if bom.Dependencies != nil {
			*result.Dependencies = append(*result.Dependencies, *bom.Dependencies...)
		}
	}

	*result.Dependencies = append(*result.Dependencies, rootDependencies)
	return result
}

// MergeSBOMFiles reads a merge config and merges the listed files. Relative paths are resolved
// against the directory of the config.
func MergeSBOMFiles(configPath string) (*cyclonedx.BOM, error) {
	config, err := utils.ReadJSON[MergeSBOMsConfigFile](configPath)
	if err != nil {
		return nil, err
	}
	if config.Purl == "" {
		return nil, errors.New("merge config needs a purl")
	}

	boms := make([]*cyclonedx.BOM, 0, len(config.SBOMs))
	for _, p := range config.SBOMs {
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(configPath), p)
		}
		slog.Info("Reading SBOM", "path", p)
		bom, err := ReadSBOM(p)
		if err != nil {
			return nil, err
		}
		boms = append(boms, bom)
	}
	return MergeSBOMs(config.Purl, boms), nil
}
