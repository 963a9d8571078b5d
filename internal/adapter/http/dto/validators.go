package dto

import (
	"html"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"vtu-backend/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	safeRefRe = regexp.MustCompile(`^[a-zA-Z0-9_\-:\.]{1,64}$`)
	phoneNGRe = regexp.MustCompile(`^(?:0|\+?234)[789][01]\d{8}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Register(v)
	}
}

// Register installs the custom validators and the decimal type mapping on v.
func Register(v *validator.Validate) {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	_ = v.RegisterValidation("safe_ref", validateSafeRef)
	_ = v.RegisterValidation("safe_url", validateSafeURL)
	_ = v.RegisterValidation("phone_ng", validatePhoneNG)
	_ = v.RegisterValidation("network", validateNetwork)
}

// decimalValue lets numeric tags (gt, gte, required) apply to decimal amounts.
// The float64 only feeds those sign and presence checks; amounts themselves
// stay decimal everywhere else.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// validateSafeRef allows alphanumeric, underscore, dash, colon and dot.
func validateSafeRef(fl validator.FieldLevel) bool {
	return safeRefRe.MatchString(fl.Field().String())
}

// validatePhoneNG accepts 11-digit local numbers and their +234 form.
func validatePhoneNG(fl validator.FieldLevel) bool {
	return phoneNGRe.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validateNetwork(fl validator.FieldLevel) bool {
	return domain.IsCatalogProvider(domain.TxTypeAirtime, fl.Field().String())
}

// validateSafeURL accepts only http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer. Fields tagged
// `sanitize:"-"` are left untouched.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() || rt.Field(i).Tag.Get("sanitize") == "-" {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// NormalizePhone converts +234/234 numbers to the local 0-prefixed form.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	if strings.HasPrefix(s, "234") && len(s) == 13 {
		return "0" + s[3:]
	}
	return s
}
