// Package qrcode builds the claim links printed at each spot and renders them as PNG.
package qrcode

import (
	"encoding/base64"
	"fmt"
	"image/color"
	"net/url"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 300
	MinSize     = 100
	MaxSize     = 1000
)

// BuildClaimURL returns <base>/?spot_id=<id>. The same inputs always give the same link.
func BuildClaimURL(baseURL, spotID string) string {
	return strings.TrimRight(baseURL, "/") + "/?spot_id=" + url.QueryEscape(spotID)
}

// ClampSize keeps a requested pixel size within [MinSize, MaxSize]; zero or negative
// means DefaultSize.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

// Render encodes content as a black-on-white PNG of size x size pixels.
func Render(content string, size int) ([]byte, error) {
	q, err := goqrcode.New(content, goqrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}
	q.ForegroundColor = color.Black
	q.BackgroundColor = color.White
	png, err := q.PNG(ClampSize(size))
	if err != nil {
		return nil, fmt.Errorf("qrcode: png: %w", err)
	}
	return png, nil
}

func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
