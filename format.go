package jaydl

import (
	"strconv"
	"strings"
)

// HeightFromQuality converts a quality label like "720p" (or bare "720") to
// a pixel height, or 0 for labels that do not name a resolution.
func HeightFromQuality(quality string) int {
	q := strings.ToLower(strings.TrimSpace(quality))
	q = strings.TrimSuffix(q, "p")
	h, err := strconv.Atoi(q)
	if err != nil || h <= 0 {
		return 0
	}
	return h
}

// DedupeFormats collapses formats that share a height+container pair,
// keeping the entry with the largest observed size. Discovery order of the
// surviving entries is preserved. Entries with no height and no container
// are passed through untouched.
func DedupeFormats(formats []MediaFormat) []MediaFormat {
	type key struct {
		kind      MediaKind
		height    int
		container string
	}
	best := make(map[key]int) // key -> index into out
	out := make([]MediaFormat, 0, len(formats))
	for _, f := range formats {
		k := key{f.Kind, f.Height, f.Container}
		if i, ok := best[k]; ok {
			if f.SizeBytes > out[i].SizeBytes {
				url := out[i].DirectURL
				out[i] = f
				if f.DirectURL == "" {
					out[i].DirectURL = url
				}
			}
			continue
		}
		best[k] = len(out)
		out = append(out, f)
	}
	return out
}

// SelectFormat picks the format best matching a requested quality label and
// media kind. Matching is deliberately forgiving: an exact resolution or
// container match wins, otherwise the first format of the requested kind,
// otherwise the first format at all. It returns nil only for an empty list.
func SelectFormat(formats []MediaFormat, quality string, kind MediaKind) *MediaFormat {
	if len(formats) == 0 {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(quality))
	height := HeightFromQuality(q)

	for i := range formats {
		f := &formats[i]
		if f.Kind != kind {
			continue
		}
		switch {
		case height > 0 && f.Height == height:
			return f
		case q != "" && q == strings.ToLower(f.Container):
			return f
		case q != "" && q == strings.ToLower(f.FormatID):
			return f
		}
	}
	// "best"/"bestaudio" and unmatched labels: first of the requested kind.
	for i := range formats {
		if formats[i].Kind == kind {
			return &formats[i]
		}
	}
	return &formats[0]
}
