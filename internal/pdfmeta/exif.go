package pdfmeta

import (
	"bytes"

	exif "github.com/dsoprea/go-exif/v3"
)

// maxEmbeddedImages bounds the number of JPEG streams searched for EXIF.
const maxEmbeddedImages = 32

var jpegSOI = []byte{0xff, 0xd8, 0xff}

// exifTags are the EXIF tags reported as metadata.
var exifTags = map[string]bool{
	"GPSLatitude":        true,
	"GPSLongitude":       true,
	"Make":               true,
	"Model":              true,
	"SerialNumber":       true,
	"CameraSerialNumber": true,
	"BodySerialNumber":   true,
	"LensSerialNumber":   true,
	"Artist":             true,
	"Author":             true,
	"Copyright":          true,
	"XPAuthor":           true,
	"DateTimeOriginal":   true,
	"DateTimeDigitized":  true,
	"DateTime":           true,
}

// extractEXIF searches the JPEG streams embedded in data (DCTDecode images
// are stored as plain JPEG files) and returns their identifying EXIF tags.
func extractEXIF(data []byte) []Field {
	fields := make([]Field, 0)
	for _, image := range embeddedJPEGs(data) {
		rawExif, err := exif.SearchAndExtractExif(image)
		if err != nil || rawExif == nil {
			continue
		}
		entries, _, err := exif.GetFlatExifData(rawExif, nil)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !exifTags[entry.TagName] || entry.Formatted == "" {
				continue
			}
			fields = append(fields, Field{Key: "exif_" + entry.TagName, Value: entry.Formatted})
		}
	}
	return fields
}

// embeddedJPEGs splits data at every JPEG start-of-image marker. Each part
// runs up to the next marker, which is enough for the EXIF segment that
// directly follows the marker.
func embeddedJPEGs(data []byte) [][]byte {
	var starts []int
	for offset := 0; len(starts) < maxEmbeddedImages; {
		idx := bytes.Index(data[offset:], jpegSOI)
		if idx < 0 {
			break
		}
		starts = append(starts, offset+idx)
		offset += idx + len(jpegSOI)
	}

	images := make([][]byte, 0, len(starts))
	for i, start := range starts {
		end := len(data)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		images = append(images, data[start:end])
	}
	return images
}
