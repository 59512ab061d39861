package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/FieldInventory/internal/models"
)

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validateDNI(dni string) error {
	if len(dni) != 8 || !isDigits(dni) {
		return models.Validationf("dni must be exactly 8 digits")
	}
	return nil
}

func validatePhone(phone string) error {
	if !isDigits(phone) || len(phone) < 9 || len(phone) > 15 {
		return models.Validationf("telefono must contain 9 to 15 digits")
	}
	return nil
}

func validateEmail(field, email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return models.Validationf("%s is not a valid email address", field)
	}
	return nil
}

func validateLength(field, value string, lo, hi int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < lo || n > hi {
		return models.Validationf("%s must be between %d and %d characters", field, lo, hi)
	}
	return nil
}

func validateCondition(c models.Condition) error {
	if !c.Valid() {
		return models.Validationf("estado must be one of %q, %q or %q",
			models.ConditionGood, models.ConditionDamaged, models.ConditionInRepair)
	}
	return nil
}

func validateValue(v *float64) error {
	if v != nil && *v < 0 {
		return models.Validationf("valor_estimado must not be negative")
	}
	return nil
}

func validateIMEI(v *string) error {
	if v != nil && utf8.RuneCountInString(*v) > 20 {
		return models.Validationf("imei must be at most 20 characters")
	}
	return nil
}

// validateNewItem checks every constraint of a creation payload. It runs
// before any store access.
func validateNewItem(in *models.NewItem) error {
	checks := []error{
		validateDNI(in.DNI),
		validatePhone(in.Phone),
		validateLength("persona", in.Holder, 2, 100),
		validateLength("dispositivo", in.Device, 2, 100),
		validateLength("control_patrimonial", in.AssetTag, 1, 50),
		validateLength("modelo", in.Model, 1, 100),
		validateLength("numero_serie", in.SerialNumber, 1, 100),
		validateEmail("correo_personal", in.PersonalEmail),
		validateCondition(in.Condition),
		validateValue(in.EstimatedValue),
		validateIMEI(in.IMEI),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

func validateItemUpdate(u *models.ItemUpdate) error {
	if u.Holder != nil {
		if err := validateLength("persona", *u.Holder, 2, 100); err != nil {
			return err
		}
	}
	if u.Device != nil {
		if err := validateLength("dispositivo", *u.Device, 2, 100); err != nil {
			return err
		}
	}
	if u.AssetTag != nil {
		if err := validateLength("control_patrimonial", *u.AssetTag, 1, 50); err != nil {
			return err
		}
	}
	if u.Model != nil {
		if err := validateLength("modelo", *u.Model, 1, 100); err != nil {
			return err
		}
	}
	if u.SerialNumber != nil {
		if err := validateLength("numero_serie", *u.SerialNumber, 1, 100); err != nil {
			return err
		}
	}
	if u.Phone != nil {
		if err := validatePhone(*u.Phone); err != nil {
			return err
		}
	}
	if u.PersonalEmail != nil {
		if err := validateEmail("correo_personal", *u.PersonalEmail); err != nil {
			return err
		}
	}
	if u.Condition != nil {
		if err := validateCondition(*u.Condition); err != nil {
			return err
		}
	}
	if err := validateValue(u.EstimatedValue); err != nil {
		return err
	}
	return validateIMEI(u.IMEI)
}

func validateNewUser(in *models.NewUser) error {
	if err := validateLength("username", in.Username, 3, 50); err != nil {
		return err
	}
	if strings.ContainsAny(in.Username, " \t\r\n") {
		return models.Validationf("username must not contain whitespace")
	}
	if err := validateEmail("email", in.Email); err != nil {
		return err
	}
	if err := validateLength("full_name", in.FullName, 2, 100); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(in.Password); n < 6 || n > 100 {
		return models.Validationf("password must be between 6 and 100 characters")
	}
	if !in.Role.Valid() {
		return models.Validationf("role must be one of admin, operator or readonly")
	}
	return nil
}

func validateUserUpdate(u *models.UserUpdate) error {
	if len(u.Fields()) == 0 {
		return models.Validationf("no fields to update")
	}
	if u.Email != nil {
		if err := validateEmail("email", *u.Email); err != nil {
			return err
		}
	}
	if u.FullName != nil {
		if err := validateLength("full_name", *u.FullName, 2, 100); err != nil {
			return err
		}
	}
	if u.Role != nil && !u.Role.Valid() {
		return models.Validationf("role must be one of admin, operator or readonly")
	}
	if u.Site != nil && strings.TrimSpace(*u.Site) == "" {
		return models.Validationf("sede must not be empty")
	}
	return nil
}
