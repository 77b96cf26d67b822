package validator

import (
	"regexp"
	"strings"
)

var (
	imageURLRe   = regexp.MustCompile(`^https?://[^\s/$.?#][^\s]*$`)
	couponCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	// 表示可能なASCIIのみ
	idempotencyKeyRe = regexp.MustCompile(`^[\x21-\x7E]{1,255}$`)
)

// 返品画像は http(s) のURL
func IsImageURL(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) <= 2048 && imageURLRe.MatchString(s)
}

// クーポンコードは英数字と - _
func IsCouponCode(s string) bool {
	return couponCodeRe.MatchString(s)
}

func IsIdempotencyKey(s string) bool {
	return idempotencyKeyRe.MatchString(s)
}
