package httputil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"reflect"
	"strconv"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Year returns the year query parameter or the fallback if it is not set.
func Year(c *gin.Context, fallback int) (int, error) {
	year, err := Int(c, "year", fallback)
	if err != nil {
		return 0, ErrInvalidYear
	}

	return year, nil
}

// Int returns the integer value of a query parameter or the fallback if
// the parameter is not set or empty.
func Int(c *gin.Context, key string, fallback int) (int, error) {
	s, ok := c.GetQuery(key)
	if !ok || s == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidNumber
	}

	return n, nil
}

// Amount returns the decimal value of a query parameter. It returns nil
// when the parameter is not set, callers then use their own default.
func Amount(c *gin.Context, key string) (*decimal.Decimal, error) {
	s, ok := c.GetQuery(key)
	if !ok || s == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, ErrInvalidAmount
	}

	return &d, nil
}

// GetURLFields reports the filter fields present in the query string.
//
// The first return value lists the fields that map 1:1 onto columns and
// can be handed to gorm's Where directly. Fields tagged
// `filterField:"false"` (e.g. the department code, which is resolved to an
// ID first) are left out there.
//
// The second return value lists every field present in the query string,
// so that zero values like an empty name can still be filtered for.
func GetURLFields(u *url.URL, filter any) ([]any, []string) {
	var queryFields []any
	var setFields []string

	query := u.Query()
	eachField(filter, "form", func(field reflect.StructField, param string) {
		if !query.Has(param) {
			return
		}

		setFields = append(setFields, field.Name)
		if field.Tag.Get("filterField") != "false" {
			queryFields = append(queryFields, field.Name)
		}
	})

	return queryFields, setFields
}

// GetBodyFields returns the names of the fields of resource that are
// present in the JSON body, including those explicitly set to null.
//
// The body is restored afterwards, so this must run before gin's
// c.*Bind methods consume it.
func GetBodyFields(c *gin.Context, resource any) ([]any, error) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	var mapBody map[string]any
	if err := json.Unmarshal(body, &mapBody); err != nil {
		log.Error().Str("request-id", requestid.Get(c)).Msgf("%T: %v", err, err.Error())
		return []any{}, ErrInvalidBody
	}

	var bodyFields []any
	eachField(resource, "json", func(field reflect.StructField, param string) {
		if _, ok := mapBody[param]; ok {
			bodyFields = append(bodyFields, field.Name)
		}
	})

	return bodyFields, nil
}

// eachField calls fn for every field of the struct v with the value of
// the given tag.
func eachField(v any, tag string, fn func(reflect.StructField, string)) {
	t := reflect.Indirect(reflect.ValueOf(v)).Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fn(field, field.Tag.Get(tag))
	}
}
