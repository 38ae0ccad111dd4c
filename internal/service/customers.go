package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/bankcore/internal/identity"
	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/repository"
	"github.com/mmeshcher/bankcore/internal/validation"
)

const birthDateLayout = "2006-01-02"

// CustomerInput содержит данные нового клиента, введённые оператором вручную.
type CustomerInput struct {
	Kind           model.CustomerKind
	DocumentNumber string

	GivenNames    string
	FirstSurname  string
	SecondSurname string
	BirthDate     *time.Time

	LegalName           string
	TradeName           string
	LegalRepresentative string

	Address string
	Phone   string
	Email   string
}

// ContactUpdate содержит изменяемые контактные данные клиента.
type ContactUpdate struct {
	Address string
	Phone   string
	Email   string
}

// RegisterCustomer регистрирует клиента. Данные, подтверждённые реестром личности,
// заменяют введённые вручную; недоступность реестра не прерывает регистрацию.
func (s *Service) RegisterCustomer(ctx context.Context, actor string, in CustomerInput) (*model.Customer, error) {
	docType, err := in.Kind.DocumentFor()
	if err != nil {
		return nil, err
	}

	in.DocumentNumber = strings.TrimSpace(in.DocumentNumber)
	if !validation.IsValidDocumentNumber(docType, in.DocumentNumber) {
		return nil, model.Validationf("invalid %s number %q", docType, in.DocumentNumber)
	}

	verified := s.applyIdentity(ctx, &in)

	if err := validateCustomer(&in); err != nil {
		return nil, err
	}

	now := s.now()
	c := &model.Customer{
		Kind:                in.Kind,
		DocumentType:        docType,
		DocumentNumber:      in.DocumentNumber,
		GivenNames:          in.GivenNames,
		FirstSurname:        in.FirstSurname,
		SecondSurname:       in.SecondSurname,
		BirthDate:           in.BirthDate,
		LegalName:           in.LegalName,
		TradeName:           in.TradeName,
		LegalRepresentative: in.LegalRepresentative,
		Address:             in.Address,
		Phone:               in.Phone,
		Email:               in.Email,
		IdentityVerified:    verified,
		Active:              true,
		CreatedBy:           actor,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetCustomerByDocument(ctx, docType, c.DocumentNumber); err == nil {
			return model.ErrDuplicateDocument
		} else if !errors.Is(err, model.ErrCustomerNotFound) {
			return err
		}

		year := now.In(s.loc).Year()
		seq, err := tx.NextSequence(ctx, fmt.Sprintf("%s%d", repository.SequenceCustomerPrefix, year))
		if err != nil {
			return err
		}
		c.Code = fmt.Sprintf("CLI%d%06d", year, seq)

		_, err = tx.CreateCustomer(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer registered",
		zap.String("code", c.Code),
		zap.String("kind", string(c.Kind)),
		zap.Bool("identity_verified", c.IdentityVerified),
		zap.String("actor", actor),
	)

	return c, nil
}

// applyIdentity дополняет ввод данными реестра и сообщает, были ли они подтверждены.
func (s *Service) applyIdentity(ctx context.Context, in *CustomerInput) bool {
	if s.identity == nil {
		return false
	}

	switch in.Kind {
	case model.CustomerNatural:
		p, err := s.identity.LookupPerson(ctx, in.DocumentNumber)
		if err != nil {
			s.warnIdentity(in, err)
			return false
		}
		overrideIfSet(&in.GivenNames, p.GivenNames)
		overrideIfSet(&in.FirstSurname, p.FirstSurname)
		overrideIfSet(&in.SecondSurname, p.SecondSurname)
		overrideIfSet(&in.Address, p.Address)
		if p.BirthDate != "" {
			if d, err := time.Parse(birthDateLayout, p.BirthDate); err == nil {
				in.BirthDate = &d
			}
		}
		return true
	case model.CustomerEntity:
		e, err := s.identity.LookupEntity(ctx, in.DocumentNumber)
		if err != nil {
			s.warnIdentity(in, err)
			return false
		}
		overrideIfSet(&in.LegalName, e.LegalName)
		overrideIfSet(&in.TradeName, e.TradeName)
		overrideIfSet(&in.Address, e.Address)
		return true
	default:
		return false
	}
}

func (s *Service) warnIdentity(in *CustomerInput, err error) {
	msg := "identity registry unavailable, using manual data"
	if errors.Is(err, identity.ErrNotFound) {
		msg = "document not found in identity registry, using manual data"
	}
	s.logger.Warn(msg,
		zap.String("kind", string(in.Kind)),
		zap.String("document", in.DocumentNumber),
		zap.Error(err),
	)
}

func overrideIfSet(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func validateCustomer(in *CustomerInput) error {
	switch in.Kind {
	case model.CustomerNatural:
		if in.GivenNames == "" || in.FirstSurname == "" || in.SecondSurname == "" {
			return model.Validationf("natural person requires given names and both surnames")
		}
		if in.LegalName != "" || in.TradeName != "" || in.LegalRepresentative != "" {
			return model.Validationf("natural person cannot carry legal entity names")
		}
	case model.CustomerEntity:
		if in.LegalName == "" {
			return model.Validationf("legal entity requires legal name")
		}
		if in.GivenNames != "" || in.FirstSurname != "" || in.SecondSurname != "" || in.BirthDate != nil {
			return model.Validationf("legal entity cannot carry natural person fields")
		}
	default:
		return model.Validationf("unknown customer kind %q", in.Kind)
	}
	return validateContact(in.Address, in.Email)
}

func validateContact(address, email string) error {
	if strings.TrimSpace(address) == "" {
		return model.Validationf("address is required")
	}
	if !validation.IsValidEmail(email) {
		return model.Validationf("invalid email %q", email)
	}
	return nil
}

// GetCustomer возвращает клиента по идентификатору.
func (s *Service) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	var c *model.Customer
	err := s.store.WithReadTx(ctx, func(tx repository.Tx) error {
		var err error
		c, err = tx.GetCustomer(ctx, id)
		return err
	})
	return c, err
}

// GetCustomerByDocument возвращает клиента по виду и номеру документа.
func (s *Service) GetCustomerByDocument(ctx context.Context, docType model.DocumentType, number string) (*model.Customer, error) {
	var c *model.Customer
	err := s.store.WithReadTx(ctx, func(tx repository.Tx) error {
		var err error
		c, err = tx.GetCustomerByDocument(ctx, docType, strings.TrimSpace(number))
		return err
	})
	return c, err
}

// CustomerAccounts возвращает все счета клиента.
func (s *Service) CustomerAccounts(ctx context.Context, customerID int64) ([]model.Account, error) {
	var accounts []model.Account
	err := s.store.WithReadTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			return err
		}
		var err error
		accounts, err = tx.ListAccountsByCustomer(ctx, customerID)
		return err
	})
	return accounts, err
}

// UpdateCustomerContact изменяет адрес, телефон и электронную почту клиента.
func (s *Service) UpdateCustomerContact(ctx context.Context, actor string, id int64, upd ContactUpdate) (*model.Customer, error) {
	if err := validateContact(upd.Address, upd.Email); err != nil {
		return nil, err
	}

	return s.mutateCustomer(ctx, actor, id, "customer contact updated", func(c *model.Customer) error {
		c.Address = upd.Address
		c.Phone = upd.Phone
		c.Email = upd.Email
		return nil
	})
}

// DeactivateCustomer помечает клиента неактивным. Клиенты никогда не удаляются.
func (s *Service) DeactivateCustomer(ctx context.Context, actor string, id int64) (*model.Customer, error) {
	return s.mutateCustomer(ctx, actor, id, "customer deactivated", func(c *model.Customer) error {
		c.Active = false
		return nil
	})
}

// ReactivateCustomer снова делает клиента активным.
func (s *Service) ReactivateCustomer(ctx context.Context, actor string, id int64) (*model.Customer, error) {
	return s.mutateCustomer(ctx, actor, id, "customer reactivated", func(c *model.Customer) error {
		c.Active = true
		return nil
	})
}

func (s *Service) mutateCustomer(ctx context.Context, actor string, id int64, event string, fn func(*model.Customer) error) (*model.Customer, error) {
	var c *model.Customer
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		c, err = tx.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		return tx.UpdateCustomer(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(event, zap.String("code", c.Code), zap.String("actor", actor))
	return c, nil
}
