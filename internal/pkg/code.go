package pkg

import (
	cryptoRand "crypto/rand"
	"math/big"
	"strings"
)

// VerifyCodeLength 邮箱验证码位数
const VerifyCodeLength = 6

// NewVerifyCode 生成定长数字验证码
func NewVerifyCode() (string, error) {
	return RandDigits(VerifyCodeLength)
}

func RandDigits(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		x, err := cryptoRand.Int(cryptoRand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + x.Int64()))
	}
	return b.String(), nil
}
