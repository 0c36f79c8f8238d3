// Пакет integrity — цифровые отпечатки содержимого архивов.
// Отпечаток — SHA-256 в hex (64 символа) от сжатого payload.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// DigestLen — длина отпечатка в hex.
const DigestLen = sha256.Size * 2

// Digest вычисляет SHA-256 отпечаток данных.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify сравнивает отпечаток данных с ожидаемым.
// Регистр hex в expected не важен.
func Verify(data []byte, expected string) bool {
	if len(expected) != DigestLen {
		return false
	}
	actual := Digest(data)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(strings.ToLower(expected))) == 1
}
