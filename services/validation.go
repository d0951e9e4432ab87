package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"game-prereg-system/models"

	"github.com/go-playground/validator/v10"
)

var (
	nicknamePattern = regexp.MustCompile(`^[가-힣a-zA-Z0-9_-]+$`)
	phonePattern    = regexp.MustCompile(`^[0-9-]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their json names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "nickname", func(fl validator.FieldLevel) bool {
		return nicknamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		phone := fl.Field().String()
		digits := len(strings.ReplaceAll(phone, "-", ""))
		return phonePattern.MatchString(phone) && digits >= 10 && digits <= 11
	})
	mustRegister(v, "referralcode", func(fl validator.FieldLevel) bool {
		return IsValidReferralCode(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// RegistrationInput is the raw registration form
type RegistrationInput struct {
	Name           string `json:"name" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,max=255,email"`
	Nickname       string `json:"nickname" validate:"required,min=2,max=50,nickname"`
	Phone          string `json:"phone,omitempty" validate:"omitempty,phone"`
	Language       string `json:"language,omitempty" validate:"oneof=ko en ja"`
	ReferredByCode string `json:"referred_by_code,omitempty" validate:"omitempty,referralcode"`
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Sanitize returns a copy with whitespace trimmed, the email lowercased and
// the referral code uppercased. The phone is only trimmed: it must already
// consist of digits and dashes to pass Validate.
func (in RegistrationInput) Sanitize() RegistrationInput {
	out := RegistrationInput{
		Name:           strings.TrimSpace(in.Name),
		Email:          NormalizeEmail(in.Email),
		Nickname:       strings.TrimSpace(in.Nickname),
		Phone:          strings.TrimSpace(in.Phone),
		Language:       strings.ToLower(strings.TrimSpace(in.Language)),
		ReferredByCode: NormalizeReferralCode(in.ReferredByCode),
	}
	if out.Language == "" {
		out.Language = string(models.LanguageKorean)
	}
	return out
}

// Validate checks a sanitized input and returns the first failing field
func (in RegistrationInput) Validate() error {
	return firstFieldError(validate.Struct(in))
}

// ValidateEmail checks a normalized email address
func ValidateEmail(email string) error {
	err := validate.Var(email, "required,max=255,email")
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 && errs[0].Tag() == "required" {
		return validationError("email", CodeRequiredEmail)
	}
	return validationError("email", CodeInvalidEmail)
}

// firstFieldError maps the first validator failure to a Validation error.
// Fields are checked in declaration order.
func firstFieldError(err error) error {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &DomainError{Kind: KindValidation, Code: CodeUnknown, Err: err}
	}

	fe := errs[0]
	field := fe.Field()
	required := fe.Tag() == "required"

	var code string
	switch field {
	case "name":
		code = pick(required, CodeRequiredName, CodeInvalidName)
	case "email":
		code = pick(required, CodeRequiredEmail, CodeInvalidEmail)
	case "nickname":
		code = pick(required, CodeRequiredNickname, CodeInvalidNickname)
	case "phone":
		code = CodeInvalidPhone
	case "language":
		code = CodeInvalidLanguage
	case "referred_by_code":
		code = CodeInvalidReferralCode
	default:
		code = CodeUnknown
	}
	return validationError(field, code)
}

func pick(required bool, requiredCode, invalidCode string) string {
	if required {
		return requiredCode
	}
	return invalidCode
}
