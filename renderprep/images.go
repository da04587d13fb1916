package renderprep

import (
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"

	"github.com/h2non/filetype"
)

// intrinsicDims is a sniffed width/height pair, in pixels. Either field may
// be zero when the header carries no usable dimension (e.g. a malformed or
// truncated capture).
type intrinsicDims struct {
	WidthPx, HeightPx int
}

func (d intrinsicDims) valid() bool { return d.WidthPx > 0 && d.HeightPx > 0 }

// sniffDimensions infers intrinsic pixel dimensions from a format header,
// without decoding pixels. A github.com/h2non/filetype probe picks the
// family; per-format header parsing then extracts width/height.
func sniffDimensions(data []byte) intrinsicDims {
	kind, _ := filetype.Match(data)

	switch kind.Extension {
	case "png":
		return sniffPNG(data)
	case "jpg":
		return sniffJPEG(data)
	case "gif":
		return sniffGIF(data)
	case "webp":
		return sniffWebP(data)
	}

	// filetype has no binary signature for SVG (it's XML text); fall back
	// to a direct byte scan for the common raster formats plus an explicit
	// SVG attribute scan.
	if d := sniffPNG(data); d.valid() {
		return d
	}
	if d := sniffJPEG(data); d.valid() {
		return d
	}
	if d := sniffGIF(data); d.valid() {
		return d
	}
	if d := sniffWebP(data); d.valid() {
		return d
	}
	return sniffSVG(data)
}

func sniffPNG(data []byte) intrinsicDims {
	if len(data) < 24 {
		return intrinsicDims{}
	}
	sig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	for i := range sig {
		if data[i] != sig[i] {
			return intrinsicDims{}
		}
	}
	if string(data[12:16]) != "IHDR" {
		return intrinsicDims{}
	}
	w := binary.BigEndian.Uint32(data[16:20])
	h := binary.BigEndian.Uint32(data[20:24])
	return intrinsicDims{WidthPx: int(w), HeightPx: int(h)}
}

func sniffGIF(data []byte) intrinsicDims {
	if len(data) < 10 {
		return intrinsicDims{}
	}
	if string(data[0:3]) != "GIF" {
		return intrinsicDims{}
	}
	w := binary.LittleEndian.Uint16(data[6:8])
	h := binary.LittleEndian.Uint16(data[8:10])
	return intrinsicDims{WidthPx: int(w), HeightPx: int(h)}
}

func sniffJPEG(data []byte) intrinsicDims {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return intrinsicDims{}
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0xD8 || marker == 0xD9 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		if i+4 > len(data) {
			break
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		isSOF := marker >= 0xC0 && marker <= 0xCF &&
			marker != 0xC4 && marker != 0xC8 && marker != 0xCC
		if isSOF {
			if i+9 > len(data) {
				break
			}
			h := binary.BigEndian.Uint16(data[i+5 : i+7])
			w := binary.BigEndian.Uint16(data[i+7 : i+9])
			return intrinsicDims{WidthPx: int(w), HeightPx: int(h)}
		}
		i += 2 + segLen
	}
	return intrinsicDims{}
}

func sniffWebP(data []byte) intrinsicDims {
	if len(data) < 30 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return intrinsicDims{}
	}
	fourcc := string(data[12:16])
	switch fourcc {
	case "VP8X":
		w := int(data[24]) | int(data[25])<<8 | int(data[26])<<16
		h := int(data[27]) | int(data[28])<<8 | int(data[29])<<16
		return intrinsicDims{WidthPx: w + 1, HeightPx: h + 1}
	case "VP8L":
		if len(data) < 25 || data[20] != 0x2F {
			return intrinsicDims{}
		}
		b := data[21:25]
		bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		w := int(bits&0x3FFF) + 1
		h := int((bits>>14)&0x3FFF) + 1
		return intrinsicDims{WidthPx: w, HeightPx: h}
	case "VP8 ":
		for i := 20; i+10 < len(data)-3; i++ {
			if data[i] == 0x9d && data[i+1] == 0x01 && data[i+2] == 0x2a {
				w := int(binary.LittleEndian.Uint16(data[i+3:i+5])) & 0x3FFF
				h := int(binary.LittleEndian.Uint16(data[i+5:i+7])) & 0x3FFF
				return intrinsicDims{WidthPx: w, HeightPx: h}
			}
		}
	}
	return intrinsicDims{}
}

var svgViewBoxRE = regexp.MustCompile(`viewBox\s*=\s*["']\s*[\d.+-]+\s+[\d.+-]+\s+([\d.]+)\s+([\d.]+)`)
var svgWidthRE = regexp.MustCompile(`\bwidth\s*=\s*["']\s*([\d.]+)`)
var svgHeightRE = regexp.MustCompile(`\bheight\s*=\s*["']\s*([\d.]+)`)

func sniffSVG(data []byte) intrinsicDims {
	text := string(data)
	if !strings.Contains(text, "<svg") {
		return intrinsicDims{}
	}
	if w := svgWidthRE.FindStringSubmatch(text); w != nil {
		if h := svgHeightRE.FindStringSubmatch(text); h != nil {
			wv, _ := strconv.ParseFloat(w[1], 64)
			hv, _ := strconv.ParseFloat(h[1], 64)
			if wv > 0 && hv > 0 {
				return intrinsicDims{WidthPx: int(wv), HeightPx: int(hv)}
			}
		}
	}
	if m := svgViewBoxRE.FindStringSubmatch(text); m != nil {
		wv, _ := strconv.ParseFloat(m[1], 64)
		hv, _ := strconv.ParseFloat(m[2], 64)
		if wv > 0 && hv > 0 {
			return intrinsicDims{WidthPx: int(wv), HeightPx: int(hv)}
		}
	}
	return intrinsicDims{}
}
