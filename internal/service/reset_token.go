package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const resetTokenTTL = 10 * time.Minute

// GenerateResetToken produce el secreto de reseteo en claro (para enviar por
// correo) junto con su hash persistible y la expiración. Solo el hash toca
// la base; el digest rápido alcanza porque el secreto es de alta entropía
// y de un solo uso.
func GenerateResetToken() (plaintext, hash string, expiresAt time.Time, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, err
	}
	plaintext = hex.EncodeToString(buf)
	hash = HashResetToken(plaintext)
	expiresAt = time.Now().UTC().Add(resetTokenTTL)
	return plaintext, hash, expiresAt, nil
}

// HashResetToken aplica el mismo digest que GenerateResetToken para
// buscar el token presentado contra su forma almacenada.
func HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
