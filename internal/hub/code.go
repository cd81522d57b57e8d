package hub

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// CodeAlphabet leaves out I, O, 0 and 1 so codes survive being read aloud.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 4
)

// CodeGenerator returns a candidate room code. The hub checks uniqueness.
type CodeGenerator func() (string, error)

func GenerateCode() (string, error) {
	n := big.NewInt(int64(len(CodeAlphabet)))

	code := make([]byte, CodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		code[i] = CodeAlphabet[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode trims and upper-cases a user supplied code and reports
// whether it could have been produced by GenerateCode.
func NormalizeCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != CodeLength {
		return code, false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return code, false
		}
	}
	return code, true
}
