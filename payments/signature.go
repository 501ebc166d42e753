package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSignatureMissing   = errors.New("webhook signature header is missing")
	ErrSignatureMalformed = errors.New("webhook signature header is malformed")
	ErrSignatureInvalid   = errors.New("webhook signature does not match")
)

// ValidateWebhookSignature проверяет HMAC-подпись уведомления Mercado Pago.
// Заголовок x-signature имеет вид "ts=<timestamp>,v1=<hex hmac>"; подпись
// считается от канонической строки с id платежа, request id и timestamp.
func ValidateWebhookSignature(secret, signatureHeader, requestID, dataID string) error {
	if signatureHeader == "" {
		return ErrSignatureMissing
	}

	var ts, receivedHash string
	for _, part := range strings.Split(signatureHeader, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "ts="):
			ts = strings.TrimPrefix(part, "ts=")
		case strings.HasPrefix(part, "v1="):
			receivedHash = strings.TrimPrefix(part, "v1=")
		}
	}
	if ts == "" || receivedHash == "" {
		return ErrSignatureMalformed
	}

	signedTemplate := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedTemplate))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(receivedHash)) {
		return ErrSignatureInvalid
	}
	return nil
}
