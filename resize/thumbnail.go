package resize

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/adriansahlman/magickresize/pixel"
)

// Software is recorded in the software property of thumbnails.
var Software = "magickresize"

// sampleFactor is how much larger than the thumbnail the sampled
// intermediate of a large reduction is.
const sampleFactor = 5

// ThumbnailImage resizes img for use as a thumbnail and records the
// Thumb::* properties of the freedesktop thumbnail convention. Large
// reductions are sampled to five times the thumbnail size first.
//
// The thumbnail has an alpha channel, depth 8, no page offset and no
// profiles other than icc and icm.
func ThumbnailImage(img *pixel.Image, columns, rows int, opts ...Option) (*pixel.Image, error) {
	if columns <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: %dx%d for %q", pixel.ErrImageSize, columns, rows, img.Filename)
	}
	xFactor := float64(columns) / float64(img.Columns())
	yFactor := float64(rows) / float64(img.Rows())
	var (
		thumb *pixel.Image
		err   error
	)
	if xFactor*yFactor > 0.1 || sampleFactor*columns < 128 || sampleFactor*rows < 128 {
		thumb, err = ResizeImage(img, columns, rows, img.Filter, img.Blur, opts...)
	} else {
		var sampled *pixel.Image
		sampled, err = SampleImage(img, sampleFactor*columns, sampleFactor*rows, opts...)
		if err != nil {
			return nil, err
		}
		thumb, err = ResizeImage(sampled, columns, rows, img.Filter, img.Blur, opts...)
	}
	if err != nil {
		return nil, err
	}

	thumb.Page = image.Rectangle{}
	if err := thumb.SetAlpha(true); err != nil {
		return nil, err
	}
	thumb.Depth = 8
	for _, name := range thumb.Profiles() {
		if !strings.EqualFold(name, "icc") && !strings.EqualFold(name, "icm") {
			thumb.DeleteProfile(name)
		}
	}
	thumb.DeleteProperty("comment")

	uri := img.Filename
	if !strings.Contains(uri, "//") {
		uri = "file://" + uri
	}
	thumb.SetProperty("Thumb::URI", uri)
	if info, err := os.Stat(img.Filename); err == nil {
		thumb.SetProperty("Thumb::MTime", strconv.FormatInt(info.ModTime().Unix(), 10))
	}
	thumb.SetProperty("Thumb::Size", formatSize(img.Extent)+"B")
	thumb.SetProperty("Thumb::Mimetype", "image/"+strings.ToLower(img.Magick))
	thumb.SetProperty("software", Software)
	thumb.SetProperty("Thumb::Image::Width", strconv.Itoa(img.MagickColumns))
	thumb.SetProperty("Thumb::Image::height", strconv.Itoa(img.MagickRows))
	thumb.SetProperty("Thumb::Document::Pages", "1")
	return thumb, nil
}

var sizeUnits = [...]string{"", "K", "M", "G", "T", "P", "E"}

// formatSize formats a byte count with decimal unit prefixes, e.g. 1.5K.
func formatSize(size int64) string {
	length := float64(size)
	i := 0
	for length >= 1000.0 && i < len(sizeUnits)-1 {
		length /= 1000.0
		i++
	}
	return strconv.FormatFloat(length, 'g', 6, 64) + sizeUnits[i]
}
