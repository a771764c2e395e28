// Package command builds gdal_merge.py invocations that stack the red, green
// and blue bands of a scene into one GeoTIFF.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog"
)

// DefaultProfile is the AWS profile the command runs under.
const DefaultProfile = "raster-foundry"

// DefaultName is used when the requested output name is blank.
const DefaultName = "output"

// Bands in output order: red, green, blue.
var Bands = []string{"B04", "B03", "B02"}

var (
	// ErrMissingAsset is returned when an item lacks one of the RGB bands.
	ErrMissingAsset = errors.New("missing band asset")
	// ErrUnsupportedHref is returned for asset hrefs GDAL cannot open remotely.
	ErrUnsupportedHref = errors.New("unsupported asset href")
)

// Convention selects how http(s) hrefs become GDAL virtual paths.
type Convention int

const (
	// Bucket treats the first label of the host as an S3 bucket name.
	Bucket Convention = iota
	// Curl reads the URL as-is through /vsicurl/.
	Curl
)

func (c Convention) String() string {
	if c == Curl {
		return "curl"
	}
	return "bucket"
}

// ParseConvention parses "bucket" or "curl".
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bucket":
		return Bucket, nil
	case "curl":
		return Curl, nil
	default:
		return Bucket, fmt.Errorf("unknown path convention %q", s)
	}
}

// Generator produces merge commands.
type Generator struct {
	Profile    string
	Convention Convention
}

// Default returns the generator used by Generate.
func Default() Generator {
	return Generator{Profile: DefaultProfile, Convention: Bucket}
}

// Generate builds a command with the default generator.
func Generate(outputName string, item *catalog.Item) (string, error) {
	return Default().Generate(outputName, item)
}

// Generate builds the command writing <name>.tif from the item's RGB bands.
func (g Generator) Generate(outputName string, item *catalog.Item) (string, error) {
	if item == nil {
		return "", fmt.Errorf("%w: no item", ErrMissingAsset)
	}

	paths := make([]string, 0, len(Bands))
	for _, band := range Bands {
		href := item.AssetHref(band)
		if href == "" {
			return "", fmt.Errorf("%w: %s on %s", ErrMissingAsset, band, item.ID)
		}
		path, err := VSIPath(href, g.Convention)
		if err != nil {
			return "", fmt.Errorf("band %s: %w", band, err)
		}
		paths = append(paths, quote(path))
	}

	profile := g.Profile
	if profile == "" {
		profile = DefaultProfile
	}

	return fmt.Sprintf(
		"AWS_DEFAULT_PROFILE=%s gdal_merge.py -co COMPRESS=DEFLATE -co PREDICTOR=2 -separate -o %s.tif %s",
		profile, NormalizeName(outputName), strings.Join(paths, " "),
	), nil
}

// NormalizeName lower-cases name and replaces spaces with underscores. A
// blank name becomes DefaultName.
func NormalizeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultName
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// VSIPath maps an asset href to a GDAL virtual file system path.
func VSIPath(href string, convention Convention) (string, error) {
	switch {
	case strings.HasPrefix(href, "s3://"):
		return "/vsis3/" + strings.TrimPrefix(href, "s3://"), nil
	case strings.HasPrefix(href, "gs://"):
		return "/vsigs/" + strings.TrimPrefix(href, "gs://"), nil
	case strings.HasPrefix(href, "https://"), strings.HasPrefix(href, "http://"):
		if convention == Curl {
			return "/vsicurl/" + href, nil
		}
		return bucketPath(href)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedHref, href)
	}
}

// bucketPath handles virtual-hosted style URLs such as
// https://sentinel-cogs.s3.us-west-2.amazonaws.com/key.
func bucketPath(href string) (string, error) {
	rest := href[strings.Index(href, "://")+3:]
	host, path := rest, ""
	if i := strings.Index(rest, "/"); i >= 0 {
		host, path = rest[:i], rest[i:]
	}
	bucket, _, _ := strings.Cut(host, ".")
	if bucket == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrUnsupportedHref, href)
	}
	return "/vsis3/" + bucket + path, nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
