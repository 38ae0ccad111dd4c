// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/mail"
	"unicode"

	"github.com/mmeshcher/bankcore/internal/model"
)

const (
	nationalIDLength = 8
	taxIDLength      = 11
)

// IsValidDocumentNumber проверяет формат номера документа для указанного вида документа.
func IsValidDocumentNumber(docType model.DocumentType, number string) bool {
	switch docType {
	case model.DocumentNationalID:
		return isDigits(number, nationalIDLength)
	case model.DocumentTaxID:
		return isDigits(number, taxIDLength)
	default:
		return false
	}
}

// IsValidEmail проверяет адрес электронной почты; пустой адрес допустим.
func IsValidEmail(email string) bool {
	if email == "" {
		return true
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func isDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, ch := range s {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}
