package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/dmitrijs2005/tzikbal/internal/server/models"
	"github.com/dmitrijs2005/tzikbal/internal/server/services"
	"github.com/go-playground/validator/v10"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

var phonePattern = regexp.MustCompile(`^\+?\d{7,15}$`)

type PreferencesRequest struct {
	Lang  string `json:"lang" validate:"omitempty,min=2,max=10"`
	Theme string `json:"theme" validate:"omitempty,oneof=dark light auto"`
}

type RegisterRequest struct {
	Name        string              `json:"name" validate:"required"`
	Email       string              `json:"email" validate:"required,email"`
	Password    string              `json:"password" validate:"required,min=6,bcryptlen"`
	Phone       string              `json:"phone" validate:"omitempty,phone"`
	Picture     string              `json:"picture" validate:"omitempty,url"`
	Preferences *PreferencesRequest `json:"preferences" validate:"omitempty"`
}

func (r RegisterRequest) toInput() services.RegisterInput {
	in := services.RegisterInput{
		Email:    r.Email,
		Password: r.Password,
		Name:     r.Name,
		Picture:  r.Picture,
		Phone:    r.Phone,
	}
	if r.Preferences != nil {
		in.Preferences = &models.Preferences{
			Lang:  r.Preferences.Lang,
			Theme: models.Theme(r.Preferences.Theme),
		}
	}
	return in
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	User        *models.SafeUser `json:"user"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	// bytes, not runes: max= would let multi-byte passwords through
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= common.MaxPasswordBytes
	})
	return v
}

// decodeAndValidate reads a JSON body into dst, rejecting unknown fields
// and trailing data, then runs struct validation. Every failure wraps
// common.ErrorValidation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", common.ErrorValidation, describeDecodeError(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", common.ErrorValidation)
	}

	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", common.ErrorValidation, describeValidationErrors(verrs))
		}
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

func describeDecodeError(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case errors.As(err, &syntaxErr):
		return "malformed JSON"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	case errors.As(err, &maxErr):
		return "request body is too large"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "property " + strings.TrimPrefix(err.Error(), "json: unknown field ") + " should not exist"
	default:
		return "malformed JSON"
	}
}

func describeValidationErrors(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be an email")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		case "phone":
			msgs = append(msgs, "Phone must be a valid number")
		case "url":
			msgs = append(msgs, field+" must be a URL")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
