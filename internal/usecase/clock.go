package usecase

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// 注文番号の採番
type OrderNumberGenerator interface {
	Next(now time.Time) string
}

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// "ORD-" + ミリ秒の36進 + "-" + ランダム5文字
type RandomOrderNumbers struct{}

func (RandomOrderNumbers) Next(now time.Time) string {
	var b strings.Builder
	b.WriteString("ORD-")
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	b.WriteByte('-')
	n36 := big.NewInt(int64(len(base36)))
	for i := 0; i < 5; i++ {
		n, err := rand.Int(rand.Reader, n36)
		if err != nil {
			// crypto/rand が失敗するのは OS 側の異常
			panic(err)
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String()
}
