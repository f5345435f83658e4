package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/go-playground/validator/v10"
)

const isoDateLayout = "2006-01-02"

var (
	cardNumberCharsRegex = regexp.MustCompile(`^[A-Za-z0-9\s]+$`)
	personNameRegex      = regexp.MustCompile(`^[A-Za-z\s]+$`)
	earliestBirthDate    = time.Date(1950, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// fieldMessages maps a JSON field and failing tag to the message shown to
// the user. "" is the fallback for tags not listed.
var fieldMessages = map[string]map[string]string{
	"cardNumber": {
		"required":   "Card number must be at least 5 characters",
		"min":        "Card number must be at least 5 characters",
		"max":        "Card number must be at most 20 characters",
		"cardnumber": "Card number must contain only letters, numbers, and spaces",
	},
	"fullName": {
		"required":   "Name is required",
		"min":        "Name is required",
		"max":        "Name is too long",
		"personname": "Name must contain only letters",
	},
	"dateOfBirth": {
		"":          "Invalid date format",
		"birthdate": "Date of birth must be between 1950 and 13 years ago",
	},
	"expiryDate": {
		"":           "Invalid date format",
		"notexpired": "Expiry date must be in the future",
	},
	"institution": {
		"required": "Institution name is required",
		"min":      "Institution name is required",
		"max":      "Institution name is too long",
	},
	"cardType": {
		"": "Card type must be physical or digital",
	},
}

// ReviewForm validates user corrections to extracted card data
type ReviewForm struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewReviewForm creates a form; now defaults to time.Now and anchors the
// date-of-birth and expiry rules
func NewReviewForm(now func() time.Time) *ReviewForm {
	if now == nil {
		now = time.Now
	}
	f := &ReviewForm{validate: validator.New(), now: now}

	f.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs
	_ = f.validate.RegisterValidation("cardnumber", matches(cardNumberCharsRegex))
	_ = f.validate.RegisterValidation("personname", matches(personNameRegex))
	_ = f.validate.RegisterValidation("isodate", isISODate)
	_ = f.validate.RegisterValidation("birthdate", f.validBirthDate)
	_ = f.validate.RegisterValidation("notexpired", f.notExpired)

	return f
}

// Validate checks every field and reports one message per invalid field
func (f *ReviewForm) Validate(fields dto.ISICCardData) dto.ValidationResult {
	result := dto.ValidationResult{Valid: true, Errors: []dto.FieldError{}}

	err := f.validate.Struct(fields)
	if err == nil {
		return result
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		result.Valid = false
		result.Errors = append(result.Errors, dto.FieldError{Field: "", Message: err.Error()})
		return result
	}

	result.Valid = false
	for _, fe := range verrs {
		result.Errors = append(result.Errors, dto.FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe.Field(), fe.Tag()),
		})
	}
	return result
}

// Submit validates fields and hands them to commit only when all are valid.
// Invalid fields are returned as dto.ValidationErrors.
func (f *ReviewForm) Submit(fields dto.ISICCardData, commit func(dto.ISICCardData) error) error {
	result := f.Validate(fields)
	if !result.Valid {
		return toValidationErrors(result)
	}
	return commit(fields)
}

func toValidationErrors(result dto.ValidationResult) dto.ValidationErrors {
	verrs := make(dto.ValidationErrors, 0, len(result.Errors))
	for _, e := range result.Errors {
		verrs = append(verrs, dto.ValidationError{Field: e.Field, Message: e.Message})
	}
	return verrs
}

func messageFor(field, tag string) string {
	msgs := fieldMessages[field]
	if msg, ok := msgs[tag]; ok {
		return msg
	}
	if msg, ok := msgs[""]; ok {
		return msg
	}
	return field + " is invalid"
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(isoDateLayout, fl.Field().String())
	return err == nil
}

func (f *ReviewForm) validBirthDate(fl validator.FieldLevel) bool {
	d, err := time.Parse(isoDateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	latest := f.today().AddDate(-13, 0, 0)
	return !d.Before(earliestBirthDate) && !d.After(latest)
}

func (f *ReviewForm) notExpired(fl validator.FieldLevel) bool {
	d, err := time.Parse(isoDateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	return !d.Before(f.today())
}

// today is the current calendar date at UTC midnight, matching how ISO
// dates are parsed
func (f *ReviewForm) today() time.Time {
	y, m, d := f.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
