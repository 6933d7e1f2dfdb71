package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/quake-proxy/internal/common"
	"github.com/i474232898/quake-proxy/internal/quake"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindJSON decodes the request body into v and validates it.
func bindJSON(c *fiber.Ctx, v any) error {
	if err := decodeBody(c, v); err != nil {
		return err
	}
	if err := validate.Struct(v); err != nil {
		return invalidRequest(validationMessage(err))
	}
	return nil
}

func decodeBody(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return invalidRequest("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return invalidRequest("request body must be a JSON object")
	}
	return nil
}

func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return err.Error()
	}
	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// nearbyBody accepts the postal code and radius under any of their aliases.
// Values may arrive as strings or numbers.
type nearbyBody struct {
	PostalCode    any `json:"postalCode"`
	PostalCodeAlt any `json:"postal_code"`
	Postal        any `json:"postal"`
	RadiusKm      any `json:"radiusKm"`
	RadiusKmAlt   any `json:"radius_km"`
}

type nearbyQuery struct {
	PostalCode string `json:"postalCode" validate:"required,max=32"`
}

func bindNearby(c *fiber.Ctx, defaultRadiusKm float64) (quake.GeoQuery, error) {
	var body nearbyBody
	if err := decodeBody(c, &body); err != nil {
		return quake.GeoQuery{}, err
	}

	q := nearbyQuery{
		PostalCode: common.FirstNonEmpty(
			asString(body.PostalCode),
			asString(body.PostalCodeAlt),
			asString(body.Postal),
		),
	}
	if err := validate.Struct(q); err != nil {
		return quake.GeoQuery{}, invalidRequest(validationMessage(err))
	}

	radius := body.RadiusKm
	if radius == nil {
		radius = body.RadiusKmAlt
	}

	return quake.GeoQuery{
		PostalCode: q.PostalCode,
		RadiusKm:   quake.NormalizeRadius(asFloat(radius), defaultRadiusKm),
	}, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// asFloat returns 0 for anything that is not a number or numeric string,
// which NormalizeRadius then replaces with the default.
func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// textOf renders a free-form plan field as text.
func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func listOf(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s := textOf(v); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := textOf(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
